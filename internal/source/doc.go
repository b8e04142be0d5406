// Package source loads the desired state of a project from a checked-out git
// repository.
//
// Every flow definition file under the repository directory describes one
// flow:
//
//	id: approve-order            # optional, defaults to the file path without extension
//	external_id: approve-order   # optional, defaults to id
//	display_name: Approve order
//	references: [notify]         # external keys of flows this flow calls
//	definition:
//	  trigger: webhook
//	  steps: [...]
//
// .yaml, .yml and .json files are decoded with yaml.v3 (JSON is a YAML
// subset); .cue files are evaluated with CUE and must define the same fields
// at the top level. Hidden files and directories are skipped. Flows are
// ordered by path.
package source
