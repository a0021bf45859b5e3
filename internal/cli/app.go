package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/autofund/internal/engine"
	"github.com/roach88/autofund/internal/rules"
	"github.com/roach88/autofund/internal/store"
)

// app bundles the durable store with an engine hydrated from it.
// Commands open it, do their work, persist, and close.
type app struct {
	store  *store.Store
	rules  *rules.Store
	engine *engine.Engine
}

// openApp opens the database and builds an engine from its contents:
// stored rules, the retained history, and the undo stack.
func openApp(opts *RootOptions) (*app, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	ctx := context.Background()
	seed, err := st.LoadRules(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	history, err := st.LoadHistory(ctx, engine.DefaultHistoryLimit)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load history", err)
	}
	undoStack, err := st.LoadUndoStack(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load undo stack", err)
	}

	ruleStore := rules.NewStore(seed)
	eng := engine.New(ruleStore, store.NewLedger(st, nil),
		engine.WithHistory(history),
		engine.WithUndoStack(undoStack),
	)

	return &app{store: st, rules: ruleStore, engine: eng}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// saveRules persists the in-memory rule set wholesale.
func (a *app) saveRules(ctx context.Context) error {
	if err := a.store.SaveRules(ctx, a.rules.List()); err != nil {
		return WrapExitError(ExitCommandError, "failed to save rules", err)
	}
	return nil
}

// saveExecutionState persists everything an engine run can change:
// rule counters, new history records, and the undo stack.
func (a *app) saveExecutionState(ctx context.Context) error {
	if err := a.saveRules(ctx); err != nil {
		return err
	}
	for _, record := range a.engine.History().Get(0, engine.HistoryFilter{}) {
		if err := a.store.AppendRecord(ctx, record); err != nil {
			return WrapExitError(ExitCommandError, "failed to save history", err)
		}
	}
	if err := a.store.PruneHistory(ctx, engine.DefaultHistoryLimit); err != nil {
		return WrapExitError(ExitCommandError, "failed to prune history", err)
	}
	if err := a.store.SaveUndoStack(ctx, a.engine.Undo().Stack()); err != nil {
		return WrapExitError(ExitCommandError, "failed to save undo stack", err)
	}
	return nil
}
