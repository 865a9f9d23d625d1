// Package panel serves the operator panel web UI from the HMI's HTTP port.
//
// A production panel build is deployed next to the binary and selected with
// api.panel_dir. Without one, a placeholder page embedded in the binary
// tells the operator that no panel is installed and links to the health
// endpoint.
package panel
