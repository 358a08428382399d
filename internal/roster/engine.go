package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/devroster/core/logger"
	"github.com/m3rciful/devroster/core/telegram/state"
)

// DefaultOpTimeout bounds the storage work of one event.
const DefaultOpTimeout = 5 * time.Second

// Options wires an Engine.
type Options struct {
	Sessions  SessionStore
	Records   RecordReader
	Committer Committer
	// OpTimeout bounds each event; zero selects DefaultOpTimeout.
	OpTimeout time.Duration
	Now       func() time.Time
	// Locks serialises events per identity; nil allocates a private one.
	Locks *state.KeyedMutex
}

// Engine routes commands, text and button presses for one identity at a
// time and returns what to render.
type Engine struct {
	sessions  SessionStore
	locks     *state.KeyedMutex
	opTimeout time.Duration

	finalizer *Finalizer
	deletion  *Deletion
	directory *Directory
}

// NewEngine validates opts and builds an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Sessions == nil {
		return nil, errors.New("roster: session store is required")
	}
	if opts.Records == nil {
		return nil, errors.New("roster: record reader is required")
	}
	if opts.Committer == nil {
		return nil, errors.New("roster: committer is required")
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.Locks == nil {
		opts.Locks = state.NewKeyedMutex()
	}
	return &Engine{
		sessions:  opts.Sessions,
		locks:     opts.Locks,
		opTimeout: opts.OpTimeout,
		finalizer: NewFinalizer(opts.Committer, opts.Now),
		deletion:  NewDeletion(opts.Committer, opts.Sessions),
		directory: NewDirectory(opts.Records),
	}, nil
}

// Directory exposes the read-only query service.
func (e *Engine) Directory() *Directory { return e.directory }

// HandleText processes a text message: a global command when the whole
// message is one, otherwise input for the current state.
func (e *Engine) HandleText(ctx context.Context, identity int64, text string) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	if cmd, ok := MatchCommand(text); ok {
		return e.command(ctx, identity, cmd)
	}

	unlock := e.locks.Lock(identity)
	defer unlock()

	sess, err := e.load(ctx, identity)
	if err != nil {
		return Reply{Kind: ReplyUnavailable}, err
	}
	out := Step(sess, text)

	if out.Finalize {
		rec, err := e.finalizer.Finalize(ctx, identity, out.Draft)
		switch {
		case errors.Is(err, ErrIncompleteDraft):
			if err := e.save(ctx, idle(identity)); err != nil {
				return Reply{Kind: ReplyUnavailable}, err
			}
			return Reply{Kind: ReplyIncomplete}, nil
		case err != nil:
			return Reply{Kind: ReplyUnavailable}, err
		}
		return Reply{Kind: ReplyRegistered, Record: &rec}, nil
	}

	if out.Persist {
		next := Session{Identity: identity, State: out.Next, Draft: out.Draft}
		if err := e.save(ctx, next); err != nil {
			return Reply{Kind: ReplyUnavailable}, err
		}
		e.logTransition(ctx, sess.State, out.Next)
	}
	return Reply{Kind: out.Reply}, nil
}

// HandleCallback processes raw button data. Presses that are not legal in
// the current state are dropped with ReplyNone and no error.
func (e *Engine) HandleCallback(ctx context.Context, identity int64, raw string) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	p := ParsePayload(raw)
	switch p.Kind {
	case PayloadView:
		return e.viewCategory(ctx, p.Key)
	case PayloadConfirmDelete, PayloadCancelDelete, PayloadCategory:
	default:
		return Reply{Kind: ReplyNone}, nil
	}

	unlock := e.locks.Lock(identity)
	defer unlock()

	sess, err := e.load(ctx, identity)
	if err != nil {
		return Reply{Kind: ReplyUnavailable}, err
	}

	switch p.Kind {
	case PayloadConfirmDelete:
		if sess.State != StateAwaitDeleteConfirm {
			return e.drop(ctx, sess, p), nil
		}
		deleted, err := e.deletion.Confirm(ctx, identity)
		if err != nil {
			return Reply{Kind: ReplyUnavailable}, err
		}
		if !deleted {
			return Reply{Kind: ReplyNothingToDelete, Edit: true}, nil
		}
		return Reply{Kind: ReplyDeleted, Edit: true}, nil

	case PayloadCancelDelete:
		if sess.State != StateAwaitDeleteConfirm {
			return e.drop(ctx, sess, p), nil
		}
		if err := e.deletion.Cancel(ctx, identity); err != nil {
			return Reply{Kind: ReplyUnavailable}, err
		}
		return Reply{Kind: ReplyDeleteCancelled, Edit: true}, nil

	default:
		cat, ok := LookupCategory(p.Key)
		if sess.State != StateAskCategory || !ok {
			return e.drop(ctx, sess, p), nil
		}
		draft := sess.Draft
		draft.Category = cat.Key
		if err := e.save(ctx, Session{Identity: identity, State: StateAskTags, Draft: draft}); err != nil {
			return Reply{Kind: ReplyUnavailable}, err
		}
		e.logTransition(ctx, sess.State, StateAskTags)
		return Reply{Kind: ReplyAskTags, Edit: true, Category: cat}, nil
	}
}

func (e *Engine) command(ctx context.Context, identity int64, cmd Command) (Reply, error) {
	if cmd.mutatesSession() {
		unlock := e.locks.Lock(identity)
		defer unlock()
	}

	switch cmd {
	case CommandStart:
		return e.reset(ctx, Session{Identity: identity, State: StateAskName, Draft: Draft{Identity: identity}}, ReplyAskName)
	case CommandCancel:
		return e.reset(ctx, idle(identity), ReplyCancelled)
	case CommandDelete:
		return e.reset(ctx, Session{Identity: identity, State: StateAwaitDeleteConfirm}, ReplyConfirmDelete)
	case CommandView:
		return Reply{Kind: ReplyViewCategories}, nil
	case CommandList:
		groups, err := e.directory.Groups(ctx)
		if err != nil {
			return Reply{Kind: ReplyUnavailable}, err
		}
		return Reply{Kind: ReplyDirectory, Groups: groups}, nil
	case CommandMe:
		rec, ok, err := e.directory.Profile(ctx, identity)
		if err != nil {
			return Reply{Kind: ReplyUnavailable}, err
		}
		if !ok {
			return Reply{Kind: ReplyNoProfile}, nil
		}
		return Reply{Kind: ReplyProfile, Record: &rec}, nil
	default:
		return Reply{Kind: ReplyHelp}, nil
	}
}

func (e *Engine) reset(ctx context.Context, next Session, kind ReplyKind) (Reply, error) {
	if err := e.save(ctx, next); err != nil {
		return Reply{Kind: ReplyUnavailable}, err
	}
	logger.Debug(ctx, "roster", "session.reset", slog.String("state", string(next.State)))
	return Reply{Kind: kind}, nil
}

func (e *Engine) viewCategory(ctx context.Context, key string) (Reply, error) {
	cat, ok := LookupCategory(key)
	if !ok {
		return Reply{Kind: ReplyCategoryRecords, Edit: true, Category: Category{Key: key, Title: key}}, nil
	}
	recs, err := e.directory.ListByCategory(ctx, key)
	if err != nil {
		return Reply{Kind: ReplyUnavailable}, err
	}
	return Reply{Kind: ReplyCategoryRecords, Edit: true, Category: cat, Records: recs}, nil
}

// load reads the session of identity. Sessions in a state outside the
// closed set read as idle.
func (e *Engine) load(ctx context.Context, identity int64) (Session, error) {
	sess, err := e.sessions.Get(ctx, identity)
	if err != nil {
		return Session{}, unavailable("load session", err)
	}
	if !KnownState(sess.State) {
		logger.Warn(ctx, "roster", "session.unknown_state", slog.String("state", string(sess.State)))
		return idle(identity), nil
	}
	sess.Identity = identity
	return sess, nil
}

func (e *Engine) save(ctx context.Context, sess Session) error {
	if err := e.sessions.Put(ctx, sess); err != nil {
		return unavailable(fmt.Sprintf("save session %s", sess.State), err)
	}
	return nil
}

func (e *Engine) drop(ctx context.Context, sess Session, p Payload) Reply {
	logger.Debug(ctx, "roster", "callback.dropped",
		slog.String("state", string(sess.State)),
		slog.String("payload", p.Data()),
	)
	return Reply{Kind: ReplyNone}
}

func (e *Engine) logTransition(ctx context.Context, from, to state.State) {
	if from == to {
		return
	}
	logger.Debug(ctx, "roster", "session.transition",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}
