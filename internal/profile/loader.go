package profile

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/fsutil"
)

// Loader reads profile files.
type Loader struct {
	// Lookup resolves env() calls. Defaults to os.Getenv.
	Lookup LookupFunc
}

// NewLoader creates a loader reading the process environment.
func NewLoader() *Loader {
	return &Loader{Lookup: os.Getenv}
}

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Streams []*Stream `hcl:"stream,block"`
	Bundles []*Bundle `hcl:"bundle,block"`
}

// Load parses every .hcl file under the given paths. A path may be a single
// file or a directory searched recursively.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Profile, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Profile loader started.", "path_count", len(paths))

	files, err := l.findFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered profile files.", "count", len(files))

	prof := &Profile{Streams: make(map[string]*Stream)}
	streamFiles := make(map[string]string)
	bundleFile := ""

	parser := hclparse.NewParser()
	evalCtx := newEvalContext(l.Lookup)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, s := range root.Streams {
			if prev, ok := streamFiles[s.Name]; ok {
				return nil, fmt.Errorf("stream %q defined twice: %s and %s", s.Name, prev, file)
			}
			streamFiles[s.Name] = file
			prof.Streams[s.Name] = s
		}
		for _, b := range root.Bundles {
			if bundleFile != "" {
				return nil, fmt.Errorf("bundle block defined twice: %s and %s", bundleFile, file)
			}
			bundleFile = file
			prof.Bundle = b
		}
		prof.Files = append(prof.Files, file)
	}

	logger.Debug("Profile loading complete.", "streams", len(prof.Streams), "bundle", prof.Bundle != nil)
	return prof, nil
}

// findFiles expands the paths into a de-duplicated list of .hcl files.
func (l *Loader) findFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("error accessing profile path %s: %w", path, err)
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", path, err)
		}
		for _, f := range found {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			all = append(all, f)
		}
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	return all, nil
}
