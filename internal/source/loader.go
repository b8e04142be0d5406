package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/promote/internal/ir"
)

// LoadError describes a flow file that could not be loaded.
type LoadError struct {
	Path    string
	Line    int // 0 if unknown
	Message string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ErrNoFlows is returned when a directory holds no flow definition files.
var ErrNoFlows = errors.New("no flow definition files found")

// LoadDir reads every flow definition file under dir. All file errors are
// collected and returned together; no partial state is returned with them.
func LoadDir(dir string) (ir.ProjectState, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return ir.ProjectState{}, fmt.Errorf("flows directory: %w", err)
	}
	if !info.IsDir() {
		return ir.ProjectState{}, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindFlowFiles(dir)
	if err != nil {
		return ir.ProjectState{}, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return ir.ProjectState{}, fmt.Errorf("%s: %w", dir, ErrNoFlows)
	}

	cueCtx := cuecontext.New()
	state := ir.ProjectState{Flows: make([]ir.FlowState, 0, len(files))}
	var errs []error
	for _, rel := range files {
		f, err := loadFile(cueCtx, dir, rel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		state.Flows = append(state.Flows, f)
	}
	if len(errs) > 0 {
		return ir.ProjectState{}, errors.Join(errs...)
	}
	return state, nil
}

// FindFlowFiles returns the slash-separated paths, relative to dir, of all
// flow definition files in lexical order.
func FindFlowFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isFlowFile(path) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

func isFlowFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json", ".cue":
		return true
	}
	return false
}

func loadFile(cueCtx *cue.Context, dir, rel string) (ir.FlowState, error) {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return ir.FlowState{}, &LoadError{Path: rel, Message: err.Error()}
	}

	var raw ir.Value
	if filepath.Ext(rel) == ".cue" {
		raw, err = decodeCUE(cueCtx, rel, data)
	} else {
		raw, err = decodeYAML(rel, data)
	}
	if err != nil {
		return ir.FlowState{}, err
	}

	obj, ok := raw.(ir.Object)
	if !ok {
		return ir.FlowState{}, &LoadError{Path: rel, Message: "flow file must be a mapping"}
	}
	f, err := flowFromObject(obj, strings.TrimSuffix(rel, filepath.Ext(rel)))
	if err != nil {
		return ir.FlowState{}, &LoadError{Path: rel, Message: err.Error()}
	}
	return f, nil
}

func decodeYAML(rel string, data []byte) (ir.Value, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		le := &LoadError{Path: rel, Message: err.Error()}
		var te *yaml.TypeError
		if errors.As(err, &te) && len(te.Errors) > 0 {
			le.Message = te.Errors[0]
		}
		return nil, le
	}
	if doc == nil {
		return nil, &LoadError{Path: rel, Message: "empty flow file"}
	}
	v, err := ir.FromGo(doc)
	if err != nil {
		return nil, &LoadError{Path: rel, Message: err.Error()}
	}
	return v, nil
}

// decodeCUE evaluates a standalone CUE file and exports it through JSON so
// numbers keep their exact integer form.
func decodeCUE(cueCtx *cue.Context, rel string, data []byte) (ir.Value, error) {
	v := cueCtx.CompileBytes(data, cue.Filename(rel))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(rel, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(rel, err)
	}
	js, err := v.MarshalJSON()
	if err != nil {
		return nil, cueLoadError(rel, err)
	}
	val, err := ir.ParseValue(js)
	if err != nil {
		return nil, &LoadError{Path: rel, Message: err.Error()}
	}
	return val, nil
}

// cueLoadError keeps the position of the first CUE error.
func cueLoadError(rel string, err error) *LoadError {
	le := &LoadError{Path: rel, Message: err.Error()}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		first := errs[0]
		le.Message = first.Error()
		if pos := first.Position(); pos.IsValid() {
			le.Line = pos.Line()
		} else if in := first.InputPositions(); len(in) > 0 && in[0].IsValid() {
			le.Line = in[0].Line()
		}
	}
	return le
}

// flowFromObject reads the flow fields of a decoded file. defaultID is used
// when the file has no id.
func flowFromObject(obj ir.Object, defaultID string) (ir.FlowState, error) {
	known := map[string]bool{"id": true, "external_id": true, "display_name": true, "references": true, "definition": true}
	for _, k := range obj.SortedKeys() {
		if !known[k] {
			return ir.FlowState{}, fmt.Errorf("unknown field %q", k)
		}
	}

	f := ir.FlowState{ID: defaultID}
	var err error
	if f.ID, err = optString(obj, "id", defaultID); err != nil {
		return ir.FlowState{}, err
	}
	if f.ExternalID, err = optString(obj, "external_id", f.ID); err != nil {
		return ir.FlowState{}, err
	}
	if f.Version.DisplayName, err = optString(obj, "display_name", ""); err != nil {
		return ir.FlowState{}, err
	}
	if f.Version.DisplayName == "" {
		return ir.FlowState{}, fmt.Errorf("display_name is required")
	}

	if refs, ok := obj["references"]; ok {
		arr, ok := refs.(ir.Array)
		if !ok {
			return ir.FlowState{}, fmt.Errorf("references must be a list")
		}
		for i, r := range arr {
			s, ok := r.(ir.String)
			if !ok || s == "" {
				return ir.FlowState{}, fmt.Errorf("references[%d] must be a non-empty string", i)
			}
			f.Version.References = append(f.Version.References, string(s))
		}
	}

	if def, ok := obj["definition"]; ok {
		d, ok := def.(ir.Object)
		if !ok {
			return ir.FlowState{}, fmt.Errorf("definition must be a mapping")
		}
		f.Version.Definition = d
	}

	f.Version = f.Version.Normalize()
	return f, nil
}

func optString(obj ir.Object, key, def string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(ir.String)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	if s == "" {
		return def, nil
	}
	return string(s), nil
}
