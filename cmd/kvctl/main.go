// Command kvctl is the administrative client: it opens one TCP connection
// to a running kvwald, issues a single command from the textproto wire
// codec, and prints the reply. Subcommand shape (one cli.Command per verb,
// a shared --addr flag) is modeled on the pack's FinKV cmd/client.go, with
// its hand-rolled RESP encoding replaced by the shared textproto package so
// client and server can never drift on wire format.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"

	"github.com/google/btree"
	"github.com/urfave/cli/v2"

	"github.com/kvwal/kvwal"
	"github.com/kvwal/kvwal/internal/textproto"
)

func main() {
	app := &cli.App{
		Name:  "kvctl",
		Usage: "talk to a running kvwald server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "127.0.0.1:7799", Usage: "server address"},
		},
		Commands: []*cli.Command{
			{Name: "put", ArgsUsage: "<key> <value>", Action: doPut},
			{Name: "get", ArgsUsage: "<key>", Action: doGet},
			{Name: "del", ArgsUsage: "<key>", Action: doDel},
			{Name: "exists", ArgsUsage: "<key>", Action: doExists},
			{Name: "size", Action: doSize},
			{Name: "flush", Action: doFlush},
			{Name: "stats", Action: doStats},
			{
				Name:      "dump",
				Usage:     "list every key in a WAL file, sorted, without a running server",
				ArgsUsage: "<wal-file>",
				Action:    doDump,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial(c *cli.Context) (net.Conn, *bufio.Reader, error) {
	conn, err := net.Dial("tcp", c.String("addr"))
	if err != nil {
		return nil, nil, fmt.Errorf("kvctl: dial %s: %w", c.String("addr"), err)
	}
	return conn, bufio.NewReader(conn), nil
}

func doPut(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("kvctl: put requires <key> <value>")
	}
	conn, r, err := dial(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := textproto.WritePut(conn, []byte(c.Args().Get(0)), []byte(c.Args().Get(1))); err != nil {
		return err
	}
	return printReply(r)
}

func doGet(c *cli.Context) error    { return doKeyCommand(c, textproto.CmdGet) }
func doDel(c *cli.Context) error    { return doKeyCommand(c, textproto.CmdDel) }
func doExists(c *cli.Context) error { return doKeyCommand(c, textproto.CmdExists) }

func doKeyCommand(c *cli.Context, name textproto.CommandName) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("kvctl: %s requires <key>", name)
	}
	conn, r, err := dial(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := textproto.WriteKeyCommand(conn, name, []byte(c.Args().Get(0))); err != nil {
		return err
	}
	return printReply(r)
}

func doSize(c *cli.Context) error  { return doBareCommand(c, textproto.CmdSize) }
func doFlush(c *cli.Context) error { return doBareCommand(c, textproto.CmdFlush) }
func doStats(c *cli.Context) error { return doBareCommand(c, textproto.CmdStats) }

func doBareCommand(c *cli.Context, name textproto.CommandName) error {
	conn, r, err := dial(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := textproto.WriteBare(conn, name); err != nil {
		return err
	}
	return printReply(r)
}

func printReply(r *bufio.Reader) error {
	reply, err := textproto.ReadReply(r)
	if err != nil {
		return err
	}
	switch reply.Kind {
	case '$':
		if reply.IsNil {
			fmt.Println("(nil)")
			return nil
		}
		fmt.Println(string(reply.Bulk))
	case ':', '+', '-':
		fmt.Println(reply.Line)
	}
	return nil
}

// dumpKey orders btree entries by key bytes. The engine itself carries no
// ordered index (§1 Non-goals) — sorting only ever happens here, in an
// offline admin tool, over a snapshot already fully materialized in memory.
type dumpKey struct {
	key, value []byte
}

func (a dumpKey) Less(than btree.Item) bool {
	return string(a.key) < string(than.(dumpKey).key)
}

// doDump opens the WAL file directly (replaying it exactly as Open would)
// and lists every live key in sorted order. It does not talk to a running
// server and must not be run against a WAL file a live kvwald also has
// open — the cross-process flock in fio.NewFlock rejects that outright.
func doDump(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("kvctl: dump requires <wal-file>")
	}

	e, err := kvwal.Open(kvwal.WithWalFile(c.Args().Get(0)))
	if err != nil {
		return fmt.Errorf("kvctl: open %s: %w", c.Args().Get(0), err)
	}
	defer e.Close()

	tree := btree.New(32)
	e.ForEach(func(key, value []byte) {
		tree.ReplaceOrInsert(dumpKey{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	})

	tree.Ascend(func(item btree.Item) bool {
		d := item.(dumpKey)
		fmt.Printf("%s\t%s\n", d.key, d.value)
		return true
	})
	return nil
}
