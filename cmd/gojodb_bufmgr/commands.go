package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sushant-115/gojodb-bufferpool/core/storage_engine/common"
	bufferpool "github.com/sushant-115/gojodb-bufferpool/core/write_engine/buffer_pool"
	flushmanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/flush_manager"
	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
	"go.uber.org/zap"
)

var errExit = errors.New("exit requested")

var commandNames = []string{
	"new", "pin", "unpin", "write", "read", "free", "flush", "flushall",
	"stats", "reset", "unpinned", "snapshot", "help", "exit", "quit",
}

// snapshotSettings is empty when the pool sits on an in-memory store.
type snapshotSettings struct {
	dbPath string
	dir    string
	opts   common.CopyOptions
}

// shell drives a buffer pool from text commands. Pins taken by "new" and "pin"
// are kept as handles per page and given back by "unpin".
type shell struct {
	bpm      *bufferpool.BufferPoolManager
	out      io.Writer
	logger   *zap.Logger
	snapshot snapshotSettings
	handles  map[pagemanager.PageID][]*bufferpool.PageHandle
}

func newShell(bpm *bufferpool.BufferPoolManager, out io.Writer, logger *zap.Logger, snap snapshotSettings) *shell {
	return &shell{
		bpm:      bpm,
		out:      out,
		logger:   logger,
		snapshot: snap,
		handles:  make(map[pagemanager.PageID][]*bufferpool.PageHandle),
	}
}

// processCommand runs one command and prints its outcome. It reports whether
// the shell should stop.
func (s *shell) processCommand(ctx context.Context, args []string) (quit bool) {
	err := s.run(ctx, args)
	switch {
	case errors.Is(err, errExit):
		fmt.Fprintln(s.out, "Exiting GojoDB buffer manager.")
		return true
	case err != nil:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

func (s *shell) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command provided", flushmanager.ErrInvalidArgument)
	}

	switch strings.ToLower(args[0]) {
	case "new":
		count := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: bad page count %q", flushmanager.ErrInvalidArgument, args[1])
			}
			count = n
		}
		pageID, handle, err := s.bpm.NewPage(count)
		if err != nil {
			return err
		}
		s.push(handle)
		fmt.Fprintf(s.out, "Allocated %d page(s) starting at %d; page %d is pinned\n", count, pageID, pageID)
	case "pin":
		pageID, err := s.pageArg(args, 1)
		if err != nil {
			return err
		}
		isEmpty := len(args) > 2 && strings.EqualFold(args[2], "empty")
		handle, err := s.bpm.PinPage(pageID, isEmpty)
		if err != nil {
			return err
		}
		s.push(handle)
		fmt.Fprintf(s.out, "Pinned page %d (%d pin(s) held here)\n", pageID, len(s.handles[pageID]))
	case "unpin":
		pageID, err := s.pageArg(args, 1)
		if err != nil {
			return err
		}
		dirty := len(args) > 2 && strings.EqualFold(args[2], "dirty")
		if handle := s.pop(pageID); handle != nil {
			err = handle.Release(dirty)
		} else {
			err = s.bpm.UnpinPage(pageID, dirty)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Unpinned page %d (dirty=%t)\n", pageID, dirty)
	case "write":
		pageID, err := s.pageArg(args, 1)
		if err != nil {
			return err
		}
		if len(args) < 3 {
			return fmt.Errorf("%w: write requires <page_id> <text>", flushmanager.ErrInvalidArgument)
		}
		text := strings.Join(args[2:], " ")
		var n int
		err = s.bpm.WithPage(pageID, func(data []byte) (bool, error) {
			clear(data)
			n = copy(data, text)
			return true, nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Wrote %d byte(s) to page %d\n", n, pageID)
	case "read":
		pageID, err := s.pageArg(args, 1)
		if err != nil {
			return err
		}
		var content string
		err = s.bpm.WithPage(pageID, func(data []byte) (bool, error) {
			if end := bytes.IndexByte(data, 0); end >= 0 {
				data = data[:end]
			}
			content = string(data)
			return false, nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Page %d: %q\n", pageID, content)
	case "free":
		pageID, err := s.pageArg(args, 1)
		if err != nil {
			return err
		}
		if err := s.bpm.FreePage(pageID); err != nil {
			return err
		}
		// The pin held here, if any, went away with the frame.
		delete(s.handles, pageID)
		fmt.Fprintf(s.out, "Freed page %d\n", pageID)
	case "flush":
		pageID, err := s.pageArg(args, 1)
		if err != nil {
			return err
		}
		force := len(args) > 2 && strings.EqualFold(args[2], "force")
		if err := s.bpm.FlushPage(pageID, force); err != nil {
			return err
		}
		if force {
			delete(s.handles, pageID)
		}
		fmt.Fprintf(s.out, "Flushed page %d\n", pageID)
	case "flushall":
		err := s.bpm.FlushAllPages()
		clear(s.handles)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Flushed all pages")
	case "stats":
		return s.bpm.PrintStats(s.out)
	case "reset":
		s.bpm.ResetStats()
		fmt.Fprintln(s.out, "Statistics reset")
	case "unpinned":
		fmt.Fprintf(s.out, "Unpinned frames: %d of %d\n", s.bpm.CountUnpinnedFrames(), s.bpm.GetPoolSize())
	case "snapshot":
		if s.snapshot.dbPath == "" {
			return fmt.Errorf("%w: snapshots need a disk store", flushmanager.ErrInvalidArgument)
		}
		info, err := common.TakeSnapshot(ctx, s.bpm, s.snapshot.dbPath, s.snapshot.dir, s.snapshot.opts, s.logger)
		// The flush before the copy empties every frame.
		clear(s.handles)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Snapshot %s written to %s (%d bytes)\n", info.ID, info.Path, info.Bytes)
		if info.Checksum != "" {
			fmt.Fprintf(s.out, "sha256 %s\n", info.Checksum)
		}
	case "help":
		s.printHelp()
	case "exit", "quit":
		return errExit
	default:
		return fmt.Errorf("%w: unknown command %q, type 'help' for a list of commands", flushmanager.ErrInvalidArgument, args[0])
	}
	return nil
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  new [count]")
	fmt.Fprintln(s.out, "  pin <page_id> [empty]")
	fmt.Fprintln(s.out, "  unpin <page_id> [dirty]")
	fmt.Fprintln(s.out, "  write <page_id> <text>")
	fmt.Fprintln(s.out, "  read <page_id>")
	fmt.Fprintln(s.out, "  free <page_id>")
	fmt.Fprintln(s.out, "  flush <page_id> [force]")
	fmt.Fprintln(s.out, "  flushall")
	fmt.Fprintln(s.out, "  stats | reset | unpinned")
	fmt.Fprintln(s.out, "  snapshot")
	fmt.Fprintln(s.out, "  help")
	fmt.Fprintln(s.out, "  exit / quit")
}

func (s *shell) pageArg(args []string, i int) (pagemanager.PageID, error) {
	if len(args) <= i {
		return pagemanager.InvalidPageID, fmt.Errorf("%w: %s requires a page id", flushmanager.ErrInvalidArgument, args[0])
	}
	id, err := strconv.ParseUint(args[i], 10, 64)
	if err != nil {
		return pagemanager.InvalidPageID, fmt.Errorf("%w: bad page id %q", flushmanager.ErrInvalidArgument, args[i])
	}
	return pagemanager.PageID(id), nil
}

func (s *shell) push(h *bufferpool.PageHandle) {
	s.handles[h.PageID()] = append(s.handles[h.PageID()], h)
}

func (s *shell) pop(pageID pagemanager.PageID) *bufferpool.PageHandle {
	stack := s.handles[pageID]
	if len(stack) == 0 {
		return nil
	}
	h := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(s.handles, pageID)
	} else {
		s.handles[pageID] = stack[:len(stack)-1]
	}
	return h
}

// releaseAll gives back every pin still held, ignoring pages already gone.
func (s *shell) releaseAll() {
	for pageID, stack := range s.handles {
		for _, h := range stack {
			if err := h.Release(false); err != nil {
				s.logger.Debug("Dropping stale handle", zap.Uint64("page_id", uint64(pageID)), zap.Error(err))
			}
		}
	}
	clear(s.handles)
}
