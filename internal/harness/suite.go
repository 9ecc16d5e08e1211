package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NoScenariosError is returned when a directory holds no scenario files.
type NoScenariosError struct {
	Dir string
}

// Error implements the error interface.
func (e *NoScenariosError) Error() string {
	return fmt.Sprintf("no scenario files (*.yaml, *.yml) in %s", e.Dir)
}

// DiscoverScenarios returns the scenario files directly inside dir, sorted.
func DiscoverScenarios(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenario directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, &NoScenariosError{Dir: dir}
	}
	sort.Strings(paths)
	return paths, nil
}

// SuiteEntry is the outcome of one scenario file in a suite.
type SuiteEntry struct {
	Path string
	Name string
	// Scenario is nil when the file could not be loaded.
	Scenario *Scenario
	Result   *Result
	// Err is set when the scenario could not be loaded or run.
	Err error
}

// Passed reports whether the scenario ran and every assertion held.
func (e SuiteEntry) Passed() bool {
	return e.Err == nil && e.Result != nil && e.Result.Pass
}

type suiteConfig struct {
	filter   string
	specsDir string
}

// SuiteOption configures RunSuite.
type SuiteOption func(*suiteConfig)

// WithFilter keeps only scenario files whose base name, without extension,
// matches the glob pattern.
func WithFilter(pattern string) SuiteOption {
	return func(c *suiteConfig) { c.filter = pattern }
}

// WithSpecsDir resolves scenario spec paths against dir instead of the
// scenario file's directory.
func WithSpecsDir(dir string) SuiteOption {
	return func(c *suiteConfig) { c.specsDir = dir }
}

// RunSuite loads and runs every scenario in dir. A bad scenario does not
// stop the suite. A filter matching nothing yields no entries and no error.
func RunSuite(dir string, opts ...SuiteOption) ([]SuiteEntry, error) {
	var cfg suiteConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	paths, err := DiscoverScenarios(dir)
	if err != nil {
		return nil, err
	}
	if cfg.filter != "" {
		if paths, err = filterScenarios(paths, cfg.filter); err != nil {
			return nil, err
		}
	}

	entries := make([]SuiteEntry, len(paths))
	for i, path := range paths {
		entries[i].Path = path
		var s *Scenario
		if cfg.specsDir != "" {
			s, err = LoadScenarioWithBasePath(path, cfg.specsDir)
		} else {
			s, err = LoadScenario(path)
		}
		if err != nil {
			entries[i].Err = err
			continue
		}
		entries[i].Name = s.Name
		entries[i].Scenario = s
		entries[i].Result, entries[i].Err = Run(s)
	}
	return entries, nil
}

// ScenarioBase is a scenario file's base name without its extension.
func ScenarioBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func filterScenarios(paths []string, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
	}
	var out []string
	for _, path := range paths {
		// The pattern was checked above, so Match cannot fail here.
		if ok, _ := filepath.Match(pattern, ScenarioBase(path)); ok {
			out = append(out, path)
		}
	}
	return out, nil
}
