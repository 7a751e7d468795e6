package conformance

// Suite is one YAML file of compiler cases.
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Tests       []Case `yaml:"tests"`
}

// Case is a single program and what compiling and running it must produce.
type Case struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"` // bool or string
	Source      string      `yaml:"source"`
	Expect      Expectation `yaml:"expect"`
}

// Expectation lists the checks applied to a compilation. Empty fields are
// not checked, except Status which defaults to "ok".
type Expectation struct {
	Status       string                 `yaml:"status,omitempty"`   // Status.String() of the result
	Errors       []string               `yaml:"errors,omitempty"`   // substrings of error messages
	Warnings     []string               `yaml:"warnings,omitempty"` // substrings of warning messages
	NoWarnings   bool                   `yaml:"no_warnings,omitempty"`
	Listing      []string               `yaml:"listing,omitempty"` // substrings of the rendered listing
	Instructions *int                   `yaml:"instructions,omitempty"`
	Values       map[string]interface{} `yaml:"values,omitempty"` // variable -> int or float after running
}

// IsSkipped returns true if this case should be skipped.
func (c *Case) IsSkipped() (bool, string) {
	switch v := c.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
	case string:
		return true, v
	}
	return false, ""
}
