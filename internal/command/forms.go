package command

import (
	"context"

	"github.com/roach88/crmbdd/internal/crm"
)

// AssertFormNotifications checks the notifications shown on the aliased
// record's form. The check itself is delegated to the context's verifier.
type AssertFormNotifications struct {
	Alias    string
	Expected []crm.FormNotification
}

func (AssertFormNotifications) Name() string { return "AssertFormNotifications" }

func (cmd AssertFormNotifications) args() map[string]any {
	expected := make([]any, len(cmd.Expected))
	for i, n := range cmd.Expected {
		expected[i] = map[string]any{"level": n.Level, "message": n.Message}
	}
	return map[string]any{"alias": cmd.Alias, "expected": expected}
}

func (cmd AssertFormNotifications) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Alias)
	if err != nil {
		return Void{}, err
	}
	return Void{}, c.Forms.AssertNotifications(ctx, cmd.Alias, ref, cmd.Expected)
}
