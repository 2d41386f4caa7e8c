package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kvwal/kvwal"
	"github.com/kvwal/kvwal/internal/textproto"
)

// handleConnection runs the read-command/apply/write-reply loop for one
// connection until it errs, the client disconnects, or ctx is canceled.
// Every reply is derived from a typed Engine error per §7's propagation
// policy — the handler never re-derives Engine semantics itself.
func handleConnection(ctx context.Context, conn net.Conn, engine *kvwal.Engine, cfg Config, metrics *Metrics, log hclog.Logger) {
	r := bufio.NewReader(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}

		cmd, err := textproto.ReadCommand(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug("read command failed", "remote", conn.RemoteAddr(), "error", err)
			}
			return
		}

		if cfg.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
		}

		start := time.Now()
		err = dispatch(conn, engine, cmd)
		metrics.CommandsHandled.WithLabelValues(string(cmd.Name)).Inc()
		metrics.CommandDuration.WithLabelValues(string(cmd.Name)).Observe(time.Since(start).Seconds())

		if err != nil {
			log.Debug("write reply failed", "remote", conn.RemoteAddr(), "error", err)
			return
		}
	}
}

func dispatch(w io.Writer, engine *kvwal.Engine, cmd textproto.Command) error {
	switch cmd.Name {
	case textproto.CmdPut:
		if err := engine.Put(cmd.Key, cmd.Value); err != nil {
			return writeEngineError(w, err)
		}
		return writeOK(w)

	case textproto.CmdGet:
		v, err := engine.Get(cmd.Key)
		if errors.Is(err, kvwal.ErrNotFound) {
			return textproto.WriteNilBulk(w)
		}
		if err != nil {
			return writeEngineError(w, err)
		}
		return textproto.WriteBulk(w, v)

	case textproto.CmdDel:
		err := engine.Delete(cmd.Key)
		if errors.Is(err, kvwal.ErrNotFound) {
			_, writeErr := io.WriteString(w, textproto.ReplyNotFound)
			return writeErr
		}
		if err != nil {
			return writeEngineError(w, err)
		}
		return writeOK(w)

	case textproto.CmdExists:
		if engine.Exists(cmd.Key) {
			return textproto.WriteInteger(w, 1)
		}
		return textproto.WriteInteger(w, 0)

	case textproto.CmdSize:
		return textproto.WriteInteger(w, int64(engine.Size()))

	case textproto.CmdFlush:
		if err := engine.Flush(); err != nil {
			return textproto.WriteError(w, "ERROR", err.Error())
		}
		return writeOK(w)

	case textproto.CmdStats:
		return writeStats(w, engine)

	default:
		return textproto.WriteError(w, "ERROR", "unknown command")
	}
}

func writeOK(w io.Writer) error {
	_, err := io.WriteString(w, textproto.ReplyOK)
	return err
}

func writeStats(w io.Writer, engine *kvwal.Engine) error {
	stats, err := engine.Stats()
	if err != nil {
		return textproto.WriteError(w, "ERROR", err.Error())
	}
	blob := fmt.Sprintf(
		"items:%d\nshards:%d\nload_factor:%.4f\nutilization:%.4f\nwal_size_bytes:%d\n",
		stats.Items, stats.Shards, stats.LoadFactor, stats.Utilization, stats.WalSizeBytes,
	)
	return textproto.WriteBulk(w, []byte(blob))
}

// writeEngineError maps an Engine error to the wire per §7: a WAL failure
// is reported as WAL_ERROR (the map is guaranteed unchanged), anything else
// as a generic validation ERROR.
func writeEngineError(w io.Writer, err error) error {
	var walErr *kvwal.WalError
	if errors.As(err, &walErr) {
		return textproto.WriteError(w, "WAL_ERROR", err.Error())
	}
	return textproto.WriteError(w, "ERROR", err.Error())
}
