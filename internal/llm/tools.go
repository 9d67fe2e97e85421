package llm

// Tool names dispatched by the agent.
const (
	ToolCreateTodo   = "createTodo"
	ToolListTodos    = "listTodos"
	ToolCompleteTodo = "completeTodo"
	ToolUpdateTodo   = "updateTodo"
	ToolDeleteTodo   = "deleteTodo"
)

var priorityValues = []string{"low", "medium", "high"}

// TodoTools is the catalog offered to the model on the first call of every
// request. Order is stable.
var TodoTools = []Tool{
	{
		Name:        ToolCreateTodo,
		Description: "Create a new todo item with a title and optional due date and priority",
		Parameters: objReq(map[string]any{
			"title":    prop("string", "The title or description of the todo"),
			"dueDate":  prop("string", "The due date in YYYY-MM-DD format (optional)"),
			"priority": enumProp("The priority level (optional)", priorityValues...),
		}, "title"),
	},
	{
		Name:        ToolListTodos,
		Description: "List all todos. Can optionally filter by completion status, date, or priority. Call with no parameters to list all todos.",
		Parameters: obj(map[string]any{
			"completed": prop("boolean", "Filter by completion status (optional)"),
			"date":      prop("string", "Filter by due date in YYYY-MM-DD format (optional)"),
			"priority":  enumProp("Filter by priority (optional)", priorityValues...),
		}),
	},
	{
		Name:        ToolCompleteTodo,
		Description: "Mark a todo as completed by its ID or title",
		Parameters: obj(map[string]any{
			"id":    prop("number", "The ID of the todo to complete"),
			"title": prop("string", "Search for todo by title if ID is not known"),
		}),
	},
	{
		Name:        ToolUpdateTodo,
		Description: "Update a todo by its ID or title with new fields",
		Parameters: obj(map[string]any{
			"id":       prop("number", "The ID of the todo to update"),
			"title":    prop("string", "Search for todo by title if ID is not known"),
			"newTitle": prop("string", "New title for the todo"),
			"dueDate":  prop("string", "New due date in YYYY-MM-DD format"),
			"priority": enumProp("New priority level", priorityValues...),
		}),
	},
	{
		Name:        ToolDeleteTodo,
		Description: "Delete a todo by its ID or title",
		Parameters: obj(map[string]any{
			"id":    prop("number", "The ID of the todo to delete"),
			"title": prop("string", "Search for todo by title if ID is not known"),
		}),
	},
}

// Helper functions for building JSON Schema objects.

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func enumProp(desc string, values ...string) map[string]any {
	p := prop("string", desc)
	p["enum"] = values
	return p
}

func obj(properties map[string]any) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   []string{},
	}
}

func objReq(properties map[string]any, required ...string) map[string]any {
	s := obj(properties)
	s["required"] = required
	return s
}
