// Package imagemetrics measures figure files. Backends wrap ImageMagick's
// identify, Ghostscript's bbox device, or read the file natively.
package imagemetrics

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"latex-length/internal/runner"
	"latex-length/internal/types"
)

// Backend names.
const (
	BackendIdentify = "identify"
	BackendGS       = "gs"
	BackendNative   = "native"
)

// Backend reports the width and height of an image file.
type Backend interface {
	Name() string
	Size(ctx context.Context, path string) (width, height float64, err error)
}

// Tools names the executables used by the external backends.
type Tools struct {
	Identify    string
	Ghostscript string
}

// Names lists the recognised backend names.
func Names() []string {
	names := []string{BackendIdentify, BackendGS, BackendNative}
	sort.Strings(names)
	return names
}

// New returns the backend called name. An unknown name is a configuration
// error.
func New(name string, tools Tools, r runner.Runner) (Backend, error) {
	switch strings.ToLower(name) {
	case BackendIdentify:
		return NewIdentify(tools.Identify, r), nil
	case BackendGS:
		return NewGhostscript(tools.Ghostscript, r), nil
	case BackendNative:
		return NewNative(), nil
	}
	return nil, types.NewAppErrorWithDetails(types.ErrConfig,
		fmt.Sprintf("unknown figure method %q", name),
		"choose one of "+strings.Join(Names(), ", "), nil)
}

func parseDim(s, what, path string) (float64, error) {
	var v float64
	if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
		return 0, types.NewAppErrorWithDetails(types.ErrExternalTool,
			fmt.Sprintf("cannot parse %s %q", what, s), path, err)
	}
	return v, nil
}
