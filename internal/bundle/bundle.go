// Package bundle prepares an offline install bundle: system packages are
// downloaded through apt without being installed, and Python wheels through
// pip. Every step is run once; the first failure aborts the rest.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/fsutil"
)

// Defaults for Options.
const (
	DefaultRequirements = "requirements.txt"
	DefaultOutputDir    = "offline"
	DefaultCacheDir     = "/var/cache/apt/archives"
	DefaultPython       = "python3"
	DefaultAptGet       = "apt-get"
	ManifestName        = "manifest.yaml"
)

// DefaultPackages are the system packages the player needs at runtime.
var DefaultPackages = []string{"ffmpeg", "libgl1", "libglib2.0-0"}

// Step names used in errors.
const (
	StepDownloadDebs   = "download-debs"
	StepCopyDebs       = "copy-debs"
	StepDownloadWheels = "download-wheels"
	StepVerify         = "verify"
	StepManifest       = "manifest"
)

// ErrEmpty is returned when a destination holds no files after its step.
var ErrEmpty = errors.New("destination is empty")

// StepError names the step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("bundle step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Options configures Prepare. Relative paths are resolved against Root.
type Options struct {
	Root         string
	Packages     []string
	Requirements string
	OutputDir    string
	CacheDir     string
	UseSudo      bool
	Python       string
	AptGet       string
}

// DefaultOptions returns the bundle defaults rooted at the current directory.
func DefaultOptions() Options {
	return Options{
		Root:         ".",
		Packages:     append([]string(nil), DefaultPackages...),
		Requirements: DefaultRequirements,
		OutputDir:    DefaultOutputDir,
		CacheDir:     DefaultCacheDir,
		Python:       DefaultPython,
		AptGet:       DefaultAptGet,
	}
}

func (o Options) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.Root, p)
}

// DebsDir is where copied .deb files go.
func (o Options) DebsDir() string { return filepath.Join(o.resolve(o.OutputDir), "debs") }

// WheelsDir is where downloaded wheels go.
func (o Options) WheelsDir() string { return filepath.Join(o.resolve(o.OutputDir), "wheels") }

// ManifestPath is where the manifest is written.
func (o Options) ManifestPath() string { return filepath.Join(o.resolve(o.OutputDir), ManifestName) }

// Validate checks the options before any command runs.
func (o Options) Validate() error {
	var errs []error
	if len(o.Packages) == 0 {
		errs = append(errs, errors.New("at least one package is required"))
	}
	if o.Requirements == "" {
		errs = append(errs, errors.New("requirements path is required"))
	}
	if o.OutputDir == "" {
		errs = append(errs, errors.New("output dir is required"))
	}
	if o.CacheDir == "" {
		errs = append(errs, errors.New("cache dir is required"))
	}
	return errors.Join(errs...)
}

// Prepare runs the bundle steps in order and returns the written manifest.
func Prepare(ctx context.Context, opts Options, runner Runner) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx).With("component", "bundle")
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if opts.Python == "" {
		opts.Python = DefaultPython
	}
	if opts.AptGet == "" {
		opts.AptGet = DefaultAptGet
	}

	debsDir, wheelsDir := opts.DebsDir(), opts.WheelsDir()
	for _, dir := range []string{debsDir, wheelsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	logger.Info("Downloading system packages.", "packages", opts.Packages, "cache", opts.CacheDir)
	name, args := aptCommand(opts)
	if err := runner.Run(ctx, name, args...); err != nil {
		return nil, &StepError{Step: StepDownloadDebs, Err: err}
	}

	debs, err := copyDebs(opts.CacheDir, debsDir)
	if err != nil {
		return nil, &StepError{Step: StepCopyDebs, Err: err}
	}
	logger.Info("Copied system packages.", "count", len(debs), "dest", debsDir)

	requirements := opts.resolve(opts.Requirements)
	logger.Info("Downloading wheels.", "requirements", requirements, "dest", wheelsDir)
	if err := runner.Run(ctx, opts.Python, pipArgs(requirements, wheelsDir)...); err != nil {
		return nil, &StepError{Step: StepDownloadWheels, Err: err}
	}

	wheels, err := fsutil.ListFiles(wheelsDir, "")
	if err != nil {
		return nil, &StepError{Step: StepVerify, Err: err}
	}
	if len(debs) == 0 {
		return nil, &StepError{Step: StepVerify, Err: fmt.Errorf("%w: %s", ErrEmpty, debsDir)}
	}
	if len(wheels) == 0 {
		return nil, &StepError{Step: StepVerify, Err: fmt.Errorf("%w: %s", ErrEmpty, wheelsDir)}
	}

	m := &Manifest{CreatedAt: time.Now().UTC(), Packages: opts.Packages}
	if m.Debs, err = describe(debs); err != nil {
		return nil, &StepError{Step: StepManifest, Err: err}
	}
	if m.Wheels, err = describe(wheels); err != nil {
		return nil, &StepError{Step: StepManifest, Err: err}
	}
	if err := m.WriteFile(opts.ManifestPath()); err != nil {
		return nil, &StepError{Step: StepManifest, Err: err}
	}

	logger.Info("Bundle ready.",
		"debs", len(m.Debs),
		"wheels", len(m.Wheels),
		"size", humanize.Bytes(uint64(m.TotalSize())),
		"manifest", opts.ManifestPath(),
	)
	return m, nil
}

// aptCommand downloads packages into the cache without installing them.
func aptCommand(opts Options) (string, []string) {
	args := []string{"install", "--download-only", "-y", "-o", "Dir::Cache::archives=" + opts.CacheDir}
	args = append(args, opts.Packages...)
	if opts.UseSudo {
		return "sudo", append([]string{opts.AptGet}, args...)
	}
	return opts.AptGet, args
}

func pipArgs(requirements, dest string) []string {
	return []string{"-m", "pip", "download", "-r", requirements, "-d", dest, "--only-binary=:all:"}
}

// copyDebs copies every cached .deb into dest and returns the copies.
func copyDebs(cacheDir, dest string) ([]string, error) {
	cached, err := fsutil.ListFiles(cacheDir, ".deb")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", cacheDir, err)
	}
	copied := make([]string, 0, len(cached))
	for _, src := range cached {
		dst, err := fsutil.CopyFile(src, dest)
		if err != nil {
			return nil, err
		}
		copied = append(copied, dst)
	}
	return copied, nil
}
