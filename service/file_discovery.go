package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/config"
	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
)

// FileResolver resolves the file set an individual wrapper runs against
type FileResolver interface {
	ResolveFiles(ctx context.Context, tool domain.ToolSpec) ([]string, error)
}

// FileDiscoveryImpl resolves files from explicit lists, named scopes, or
// the default multi-root discovery. Paths are relative to the project root
// and always use forward slashes.
type FileDiscoveryImpl struct {
	root      string
	scopes    map[string]config.ScopeConfig
	defaults  []config.ScopeConfig
	exclude   map[string]bool
	gitignore *ignore.GitIgnore
	logger    *zap.Logger
}

// NewFileDiscovery creates a resolver rooted at root
func NewFileDiscovery(root string, cfg *config.Config, logger *zap.Logger) *FileDiscoveryImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	d := &FileDiscoveryImpl{
		root:     root,
		scopes:   cfg.EffectiveScopes(),
		defaults: config.DefaultDiscovery(),
		exclude:  make(map[string]bool),
		logger:   logger,
	}
	for _, dir := range cfg.Discovery.ExcludeDirs {
		d.exclude[dir] = true
	}

	if cfg.Discovery.RespectGitignore {
		path := filepath.Join(root, ".gitignore")
		if _, err := os.Stat(path); err == nil {
			gi, err := ignore.CompileIgnoreFile(path)
			if err != nil {
				logger.Debug("ignoring unreadable .gitignore", zap.Error(err))
			} else {
				d.gitignore = gi
			}
		}
	}
	return d
}

// ResolveFiles returns the files for tool: Config.Files when set, else the
// named Config.Scope, else the default discovery roots.
func (d *FileDiscoveryImpl) ResolveFiles(ctx context.Context, tool domain.ToolSpec) ([]string, error) {
	if len(tool.Config.Files) > 0 {
		files := make([]string, len(tool.Config.Files))
		for i, f := range tool.Config.Files {
			files[i] = filepath.ToSlash(f)
		}
		return files, nil
	}

	scopes := d.defaults
	if tool.Config.Scope != "" {
		scope, ok := d.scopes[tool.Config.Scope]
		if !ok {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("unknown scope %q for tool %s", tool.Config.Scope, tool.Name), nil)
		}
		scopes = []config.ScopeConfig{scope}
	}

	seen := make(map[string]bool)
	var files []string
	for _, scope := range scopes {
		found, err := d.discover(ctx, scope)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	sort.Strings(files)

	d.logger.Debug("files discovered",
		zap.String("tool", tool.Name),
		zap.String("scope", tool.Config.Scope),
		zap.Int("count", len(files)))
	return files, nil
}

// discover walks every root of scope, honouring its depth and pattern
func (d *FileDiscoveryImpl) discover(ctx context.Context, scope config.ScopeConfig) ([]string, error) {
	pattern, err := regexp.Compile(scope.Pattern)
	if err != nil {
		return nil, domain.NewConfigError("invalid scope pattern "+scope.Pattern, err)
	}

	var files []string
	for _, r := range scope.Roots {
		start := filepath.Join(d.root, r)
		info, err := os.Stat(start)
		if err != nil || !info.IsDir() {
			continue
		}

		err = filepath.WalkDir(start, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			depth := pathDepth(start, path)
			rel, relErr := filepath.Rel(d.root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if entry.IsDir() {
				if path == start {
					return nil
				}
				if d.isExcludedDir(entry.Name(), rel) || (scope.MaxDepth > 0 && depth >= scope.MaxDepth) {
					return filepath.SkipDir
				}
				return nil
			}

			if scope.MaxDepth > 0 && depth > scope.MaxDepth {
				return nil
			}
			if !pattern.MatchString(entry.Name()) {
				return nil
			}
			if d.gitignore != nil && d.gitignore.MatchesPath(rel) {
				return nil
			}
			files = append(files, rel)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (d *FileDiscoveryImpl) isExcludedDir(name, rel string) bool {
	if d.exclude[name] {
		return true
	}
	return d.gitignore != nil && d.gitignore.MatchesPath(rel+"/")
}

// pathDepth counts path segments below start (start/x = 1)
func pathDepth(start, path string) int {
	rel, err := filepath.Rel(start, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
