package flash

import (
	"sort"
	"strings"
)

// Env is a snapshot of environment variables used to expand area file paths.
type Env map[string]string

// EnvFromList builds an Env from KEY=VALUE pairs as returned by os.Environ.
// Entries without '=' are ignored; later duplicates win.
func EnvFromList(list []string) Env {
	env := make(Env, len(list))
	for _, kv := range list {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Expand replaces every $(NAME) in path with the value of NAME from env.
// It reports false when the result is still a bare $(...) reference, which
// means the file names an unset variable and should be left out.
func Expand(path string, env Env) (string, bool) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path = strings.ReplaceAll(path, "$("+k+")", env[k])
	}

	if strings.HasPrefix(path, "$(") && strings.HasSuffix(path, ")") {
		return path, false
	}
	return path, true
}
