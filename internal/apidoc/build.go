package apidoc

const bearerScheme = "OAuth2PasswordBearer"

func ref(name string) *Schema {
	return &Schema{Ref: "#/components/schemas/" + name}
}

func str() *Schema { return &Schema{Type: "string"} }

func jsonContent(schema *Schema) map[string]MediaType {
	return map[string]MediaType{"application/json": {Schema: schema}}
}

func jsonResponse(description string, schema *Schema) Response {
	return Response{Description: description, Content: jsonContent(schema)}
}

func errorResponse(description string) Response {
	return jsonResponse(description, ref("Error"))
}

func secured(op Operation) Operation {
	op.Security = []map[string][]string{{bearerScheme: {}}}
	if op.Responses == nil {
		op.Responses = map[string]Response{}
	}
	op.Responses["401"] = errorResponse("Missing, invalid or expired token")
	return op
}

var taskIDParam = Parameter{Name: "id", In: "path", Required: true, Schema: &Schema{Type: "integer"}}

// Build returns the API description. It has no inputs besides info and no
// side effects, so the result can be computed once at startup.
func Build(info Info) *Document {
	notFound := errorResponse("Task not found or not owned by the caller")

	return &Document{
		OpenAPI: "3.0.3",
		Info:    info,
		Paths: map[string]PathItem{
			"/token": {
				"post": {
					Summary: "Exchange username and password for an access token",
					Tags:    []string{"auth"},
					RequestBody: &RequestBody{
						Required: true,
						Content: map[string]MediaType{
							"application/x-www-form-urlencoded": {Schema: ref("TokenRequest")},
						},
					},
					Responses: map[string]Response{
						"200": jsonResponse("Access token", ref("Token")),
						"400": errorResponse("Missing form fields"),
						"401": errorResponse("Incorrect username or password"),
					},
				},
			},
			"/users": {
				"post": {
					Summary:     "Register a user",
					Tags:        []string{"users"},
					RequestBody: &RequestBody{Required: true, Content: jsonContent(ref("UserCreate"))},
					Responses: map[string]Response{
						"200": jsonResponse("Registered user", ref("User")),
						"400": errorResponse("Username taken or invalid input"),
					},
				},
			},
			"/users/me": {
				"get": secured(Operation{
					Summary:   "Current user",
					Tags:      []string{"users"},
					Responses: map[string]Response{"200": jsonResponse("Current user", ref("User"))},
				}),
			},
			"/protected-route": {
				"get": secured(Operation{
					Summary: "Caller location and current weather",
					Tags:    []string{"weather"},
					Responses: map[string]Response{
						"200": jsonResponse("Location and weather", ref("ProtectedRoute")),
						"503": errorResponse("Location or weather lookup failed"),
					},
				}),
			},
			"/tasks": {
				"get": secured(Operation{
					Summary: "List the caller's tasks",
					Tags:    []string{"tasks"},
					Responses: map[string]Response{
						"200": jsonResponse("Tasks", &Schema{Type: "array", Items: ref("Task")}),
					},
				}),
				"post": secured(Operation{
					Summary:     "Create a task",
					Tags:        []string{"tasks"},
					RequestBody: &RequestBody{Required: true, Content: jsonContent(ref("TaskCreate"))},
					Responses: map[string]Response{
						"200": jsonResponse("Created task", ref("Task")),
						"400": errorResponse("Invalid input"),
					},
				}),
			},
			"/tasks/{id}": {
				"get": secured(Operation{
					Summary:    "Get a task",
					Tags:       []string{"tasks"},
					Parameters: []Parameter{taskIDParam},
					Responses: map[string]Response{
						"200": jsonResponse("Task", ref("Task")),
						"404": notFound,
					},
				}),
				"put": secured(Operation{
					Summary:     "Partially update a task",
					Tags:        []string{"tasks"},
					Parameters:  []Parameter{taskIDParam},
					RequestBody: &RequestBody{Required: true, Content: jsonContent(ref("TaskUpdate"))},
					Responses: map[string]Response{
						"200": jsonResponse("Updated task", ref("Task")),
						"400": errorResponse("Invalid input"),
						"404": notFound,
					},
				}),
				"delete": secured(Operation{
					Summary:    "Delete a task",
					Tags:       []string{"tasks"},
					Parameters: []Parameter{taskIDParam},
					Responses: map[string]Response{
						"200": jsonResponse("Deleted", ref("Message")),
						"404": notFound,
					},
				}),
			},
		},
		Components: Components{
			Schemas:         schemas(),
			SecuritySchemes: map[string]SecurityScheme{
				bearerScheme: {
					Type: "oauth2",
					Flows: OAuthFlows{Password: OAuthFlow{
						TokenURL: "token",
						Scopes:   map[string]string{},
					}},
				},
			},
		},
	}
}

func schemas() map[string]*Schema {
	return map[string]*Schema{
		"Error": {
			Type:     "object",
			Required: []string{"error"},
			Properties: map[string]*Schema{
				"error":   str(),
				"message": str(),
			},
		},
		"Message": {
			Type:       "object",
			Required:   []string{"message"},
			Properties: map[string]*Schema{"message": str()},
		},
		"TokenRequest": {
			Type:     "object",
			Required: []string{"username", "password"},
			Properties: map[string]*Schema{
				"username": str(),
				"password": {Type: "string", Format: "password"},
			},
		},
		"Token": {
			Type:     "object",
			Required: []string{"access_token", "token_type"},
			Properties: map[string]*Schema{
				"access_token": str(),
				"token_type":   {Type: "string", Default: "bearer"},
			},
		},
		"UserCreate": {
			Type:     "object",
			Required: []string{"username", "password"},
			Properties: map[string]*Schema{
				"username": str(),
				"password": {Type: "string", Format: "password"},
			},
		},
		"User": {
			Type:     "object",
			Required: []string{"id", "username"},
			Properties: map[string]*Schema{
				"id":       {Type: "integer"},
				"username": str(),
			},
		},
		"TaskCreate": {
			Type:     "object",
			Required: []string{"task_name"},
			Properties: map[string]*Schema{
				"task_name":   str(),
				"description": str(),
				"status":      {Type: "string", Default: "pending"},
			},
		},
		"TaskUpdate": {
			Type: "object",
			Properties: map[string]*Schema{
				"task_name":   str(),
				"description": str(),
				"status":      str(),
			},
		},
		"Task": {
			Type:     "object",
			Required: []string{"id", "task_name", "status", "owner_id", "created_at"},
			Properties: map[string]*Schema{
				"id":          {Type: "integer"},
				"task_name":   str(),
				"description": str(),
				"status":      str(),
				"owner_id":    {Type: "integer"},
				"created_at":  {Type: "string", Format: "date-time"},
				"updated_at":  {Type: "string", Format: "date-time", Nullable: true},
			},
		},
		"ProtectedRoute": {
			Type:     "object",
			Required: []string{"message", "ip_address", "country", "weather"},
			Properties: map[string]*Schema{
				"message":    str(),
				"ip_address": str(),
				"country":    str(),
				"weather": {
					Type:     "object",
					Required: []string{"weather_state", "temperature"},
					Properties: map[string]*Schema{
						"weather_state": str(),
						"temperature":   {Type: "number"},
					},
				},
			},
		},
	}
}
