package errors

// template is a registered error definition.
type template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their definitions.
//
// Ranges: E1xx configuration, E2xx templates, E3xx server.
var registry = map[string]template{
	"E101": {
		Category:   CategoryConfig,
		Message:    "configuration file not found",
		Suggestion: "Create a petal.json in the project directory, or pass --config",
	},
	"E102": {
		Category:   CategoryConfig,
		Message:    "configuration file is not valid JSON",
		Suggestion: "Check petal.json for syntax errors",
	},
	"E103": {
		Category:   CategoryConfig,
		Message:    "invalid configuration value",
		Suggestion: "See the field named in the detail for the accepted range",
	},
	"E201": {
		Category:   CategoryTemplate,
		Message:    "template file not found",
		Suggestion: "Check the template path in petal.json",
	},
	"E202": {
		Category:   CategoryTemplate,
		Message:    "template is not parsable HTML",
		Suggestion: "Validate the template markup",
	},
	"E301": {
		Category:   CategoryServer,
		Message:    "server failed to start",
		Suggestion: "Check that the configured address is free",
	},
}
