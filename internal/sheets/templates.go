package sheets

// Template is a fixed starter header list used at sheet creation.
type Template struct {
	Name    string
	Headers []string
}

// HasTemplate reports whether key names a known starter template.
func HasTemplate(key string) bool {
	_, ok := templates[key]
	return ok
}

var templates = map[string]Template{
	"vehicle": {
		Name:    "Vehicle Register",
		Headers: []string{"Vehicle ID", "Make", "Model", "Year", "Registration", "Status", "Last Service"},
	},
	"driver": {
		Name:    "Driver Log",
		Headers: []string{"Driver ID", "Name", "License Number", "Phone", "Email", "Status"},
	},
	"expense": {
		Name:    "Expense Tracker",
		Headers: []string{"Date", "Category", "Description", "Amount", "Vehicle ID", "Payment Method"},
	},
	"blank": {
		Name:    "Blank Spreadsheet",
		Headers: []string{"Column 1", "Column 2", "Column 3"},
	},
}
