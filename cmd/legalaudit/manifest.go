package main

import "fmt"

// Run executes the manifest command. The manifest has already been loaded
// and validated.
func (c *ManifestCmd) Run(deps *Dependencies) error {
	m := deps.Manifest
	fmt.Fprintf(deps.Stdout, "%s %s (transport %s, concurrency %d)\n", m.Name, m.Version, m.Transport, m.Limits.MaxConcurrency)

	rows := make([][]string, len(m.Tools))
	for i := range m.Tools {
		tool := &m.Tools[i]
		optional := ""
		if tool.Optional {
			optional = "yes"
		}
		rows[i] = []string{tool.Name, m.Timeout(tool).String(), optional, tool.Description}
	}
	writeTable(deps.Stdout, []string{"Tool", "Timeout", "Optional", "Description"}, rows, 1)
	fmt.Fprintf(deps.Stdout, "%d tools\n", len(m.Tools))
	return nil
}
