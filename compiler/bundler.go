package compiler

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/eunomia-project/eunomia/core"
)

// CompileResult aggregates the warnings produced while compiling a bundle.
// Compile surfaces the first hard validation error directly; CompileResult
// carries everything that was not fatal.
type CompileResult struct {
	Warnings []string
}

// Bundler assembles a core.Bundle from explicitly-added policies and data
// files, or from directory trees, applying optional validation and
// optimisation before packaging.
type Bundler struct {
	Service    string
	Version    string
	RevisionID string

	policies  []*core.Policy
	dataFiles map[string]string

	optimize bool
	validate bool

	log *logrus.Entry
}

// NewBundler builds a Bundler for service at version. version is required
// at Compile time; an empty value here is allowed so callers can set the
// exported Version field before calling Compile.
func NewBundler(service, version string) *Bundler {
	return &Bundler{
		Service:   service,
		Version:   version,
		dataFiles: map[string]string{},
		log:       logrus.WithField("component", "compiler.bundler"),
	}
}

// WithOptimize toggles comment/whitespace stripping at compile time.
func (b *Bundler) WithOptimize(on bool) *Bundler { b.optimize = on; return b }

// WithValidation toggles running the static analyzer over non-test
// policies at compile time.
func (b *Bundler) WithValidation(on bool) *Bundler { b.validate = on; return b }

// AddPolicy registers an already-parsed policy.
func (b *Bundler) AddPolicy(p *core.Policy) *Bundler {
	b.policies = append(b.policies, p)
	return b
}

// AddDataFile registers a data file's content under an explicit path.
func (b *Bundler) AddDataFile(path, content string) *Bundler {
	b.dataFiles[path] = content
	return b
}

// LoadPoliciesDir recurses root, loading every "*.rego" file as a policy
// and excluding "*_test.rego" files.
func (b *Bundler) LoadPoliciesDir(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".rego") || strings.HasSuffix(path, "_test.rego") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "compiler: reading policy file %q", path)
		}
		parsed, err := Parse(path, string(content))
		if err != nil {
			return errors.Wrapf(err, "compiler: parsing policy file %q", path)
		}
		b.policies = append(b.policies, &core.Policy{
			Package:     parsed.Package,
			Source:      string(content),
			FilePath:    path,
			Description: parsed.Description,
			Authors:     parsed.Authors,
		})
		return nil
	})
}

var dataFileNameRe = regexp.MustCompile(`^data\.(json|yaml)$`)

// LoadDataDir recurses root, loading every "data.json" or "data.yaml" file
// it finds, keyed by its path relative to root.
func (b *Bundler) LoadDataDir(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !dataFileNameRe.MatchString(filepath.Base(path)) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "compiler: reading data file %q", path)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		b.dataFiles[filepath.ToSlash(rel)] = string(content)
		return nil
	})
}

// DetectGitRevision sets RevisionID to the HEAD commit hash of the git
// repository at repoPath, if any. A missing or non-git directory is not an
// error: revision id is optional.
func (b *Bundler) DetectGitRevision(repoPath string) error {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		b.log.WithError(err).Debug("no git repository found for revision detection")
		return nil
	}
	head, err := repo.Head()
	if err != nil {
		return errors.Wrap(err, "compiler: reading HEAD")
	}
	b.RevisionID = head.Hash().String()
	return nil
}

// Compile assembles the bundle. It fails if Version is empty or no
// policies were added; if validation is on it runs the static analyzer
// over every non-test policy with the missing-test-package warning
// suppressed; if optimisation is on it strips comments and minimises
// whitespace from every policy's source before packaging.
func (b *Bundler) Compile() (*core.Bundle, *CompileResult, error) {
	if b.Version == "" {
		return nil, nil, core.ErrMissingVersion
	}
	if len(b.policies) == 0 {
		return nil, nil, core.ErrEmptyBundle
	}

	result := &CompileResult{}

	if b.validate {
		for _, p := range b.policies {
			if p.IsTest() {
				continue
			}
			analysis, err := Analyze(p, AnalyzerOptions{WarnMissingTests: false})
			if err != nil {
				return nil, nil, err
			}
			result.Warnings = append(result.Warnings, analysis.Warnings...)
		}
	}

	bundle, err := core.NewBundle(b.Service, b.Version)
	if err != nil {
		return nil, nil, err
	}
	bundle.Revision = b.RevisionID

	for _, p := range b.policies {
		source := p.Source
		if b.optimize {
			source = optimizeSource(source)
		}
		bundle.AddPolicy(&core.Policy{
			Package:     p.Package,
			Source:      source,
			FilePath:    p.FilePath,
			CreatedAt:   p.CreatedAt,
			Description: p.Description,
			Authors:     p.Authors,
		})
	}
	for path, content := range b.dataFiles {
		bundle.AddDataFile(path, content)
	}

	if err := bundle.Validate(); err != nil {
		return nil, nil, err
	}

	b.log.WithFields(logrus.Fields{
		"service": b.Service, "version": b.Version, "policies": len(bundle.Policies),
	}).Info("compiled bundle")
	return bundle, result, nil
}

// CompileToFile compiles the bundle and writes its canonical archive to
// path.
func (b *Bundler) CompileToFile(path string) error {
	bundle, _, err := b.Compile()
	if err != nil {
		return err
	}
	data, err := bundle.ToBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "compiler: writing bundle to %q", path)
	}
	return nil
}

// optimizeSource strips comment-only lines and collapses runs of blank
// lines and trailing whitespace.
func optimizeSource(source string) string {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if idx := findTrailingComment(line); idx >= 0 {
			line = strings.TrimRight(line[:idx], " \t")
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Join(out, "\n")
}

// findTrailingComment finds a "#" that starts a trailing comment, ignoring
// "#" characters inside quoted strings.
func findTrailingComment(line string) int {
	inString := false
	for i, r := range line {
		switch r {
		case '"':
			inString = !inString
		case '#':
			if !inString {
				return i
			}
		}
	}
	return -1
}
