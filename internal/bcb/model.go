package bcb

// observation is one entry of the SGS JSON payload, e.g.
// {"data":"02/01/2024","valor":"0.043739"}.
type observation struct {
	Date  string `json:"data"`
	Value string `json:"valor"`
}
