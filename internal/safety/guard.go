package safety

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// AllowStatus is the exit status a guarded hook falls back to.
const AllowStatus = 0

// DisabledEnv disables every hook when set to a true value.
const DisabledEnv = "SANEPROCESS_HOOKS_DISABLED"

// HookDisabledEnv returns the per-hook kill switch variable for a hook name
// such as "pre-tool".
func HookDisabledEnv(hook string) string {
	name := strings.ToUpper(strings.ReplaceAll(hook, "-", "_"))
	return fmt.Sprintf("SANEPROCESS_%s_DISABLED", name)
}

// Disabled reports whether hook is switched off globally or individually.
func Disabled(hook string) bool {
	return truthy(os.Getenv(DisabledEnv)) || truthy(os.Getenv(HookDisabledEnv(hook)))
}

// FailOpen runs fn and returns its status. A disabled hook is not run, and
// a panic in fn is logged and converted to AllowStatus.
func FailOpen(log *zap.Logger, hook string, fn func() int) (code int) {
	if log == nil {
		log = zap.NewNop()
	}
	if Disabled(hook) {
		log.Debug("hook disabled by kill switch", zap.String("hook", hook))
		return AllowStatus
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("hook panicked, allowing", zap.String("hook", hook), zap.Any("panic", r), zap.Stack("stack"))
			code = AllowStatus
		}
	}()
	return fn()
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
