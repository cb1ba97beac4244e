package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KilimcininKorOglu/cloudkv/internal/message"
	"github.com/KilimcininKorOglu/cloudkv/internal/network"
)

var errUsage = errors.New("usage")

// ctlCmd handles the ctl command.
func ctlCmd(args []string) int {
	return runCtl(os.Stdout, os.Stderr, args)
}

func runCtl(stdout, stderr io.Writer, args []string) int {
	fs := flag.NewFlagSet("ctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	timeout := fs.Duration("timeout", network.DefaultTimeout, "Request timeout")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printCtlUsage(stdout)
		return 0
	}

	rest := fs.Args()
	if len(rest) < 2 {
		fmt.Fprintln(stderr, "Error: address and operation are required")
		printCtlUsage(stderr)
		return 1
	}
	addr, op := rest[0], rest[1]

	req, err := buildRequest(op, rest[2:])
	if err != nil {
		if errors.Is(err, errUsage) {
			printCtlUsage(stderr)
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := network.Call(ctx, addr, req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: request to %s failed: %v\n", addr, err)
		return 1
	}

	printResponse(stdout, resp)
	if !resp.Success {
		return 1
	}
	return 0
}

// buildRequest turns a ctl operation and its arguments into a request.
func buildRequest(op string, args []string) (*message.Message, error) {
	switch op {
	case "put":
		// Accept both `put k v` and `put "k v"`
		if len(args) == 1 {
			args = strings.Fields(args[0])
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: put <key> <value>", errUsage)
		}
		req := message.NewRequest(message.OpPut)
		req.AddKVP(args[0], args[1])
		return req, nil

	case "get", "del", "direct_get":
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: %s <key>...", errUsage, op)
		}
		ops := map[string]message.Operation{
			"get":        message.OpGet,
			"del":        message.OpDelete,
			"direct_get": message.OpRaftDirectGet,
		}
		req := message.NewRequest(ops[op])
		for _, key := range args {
			req.AddKVP(key, "")
		}
		return req, nil

	case "leader":
		return message.NewRequest(message.OpRaftGetLeader), nil

	case "dropped":
		return message.NewRequest(message.OpRaftDroppedNode), nil

	case "join":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: join <address>", errUsage)
		}
		req := message.NewRequest(message.OpJoinCluster)
		req.Address = args[0]
		return req, nil

	default:
		return nil, fmt.Errorf("%w: unknown operation %q", errUsage, op)
	}
}

// printResponse writes resp in the line format scripts parse.
func printResponse(w io.Writer, resp *message.Message) {
	switch resp.Operation {
	case message.OpRaftGetLeader:
		fmt.Fprintf(w, "Leader:\t%s\n", resp.Address)
		return
	case message.OpRaftDroppedNode:
		if resp.Success {
			for _, p := range resp.Partitions {
				fmt.Fprintf(w, "Dropped:\t%s\n", p.Peer)
			}
			fmt.Fprintln(w, message.StatusOK)
			return
		}
	case message.OpGet, message.OpRaftDirectGet:
		for _, kvp := range resp.KVPs {
			fmt.Fprintf(w, "Key:\t%s\n", kvp.Key)
			fmt.Fprintf(w, "Value:\t%s\n", kvp.Value)
		}
	default:
		for _, kvp := range resp.KVPs {
			fmt.Fprintf(w, "%s:\t%s\n", kvp.Key, kvp.Value)
		}
	}

	if resp.Success {
		fmt.Fprintln(w, message.StatusOK)
		return
	}
	fmt.Fprintf(w, "Failed:\t%s\n", resp.Message)
	if resp.Address != "" {
		fmt.Fprintf(w, "Leader:\t%s\n", resp.Address)
	}
}
