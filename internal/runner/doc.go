// Package runner spawns build commands from templates.
//
// [Run] expands a command against an [expand.Store], splits it with POSIX
// shell rules, and waits for it. A [Group] starts many commands at once
// against a frozen store and prints their captured output together when it
// is waited for: successful tasks first, failures last, so the failures are
// what stays on screen.
//
//	err := runner.WithGroup(ctx, store, opts, func(g *runner.Group) error {
//		for _, arch := range archs {
//			if _, err := g.Run("{{ make }} ARCH=" + arch); err != nil {
//				return err
//			}
//		}
//		return nil
//	})
//
// Failures are returned, never turned into process exits here. Both
// [*ProcessError] and [*GroupError] match [ErrProcessFailed].
package runner
