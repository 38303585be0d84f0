// Command v6sh is an interactive driver over a v6fs volume: a thin
// read-tokenize-dispatch loop around the initfs/cpin/cpout/mkdir/rm/quit
// façade. It owns none of the on-disk logic itself, only argument parsing,
// logging, and session bookkeeping.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"code.cloudfoundry.org/bytefmt"
	"github.com/google/uuid"
	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"

	"github.com/diskfs/v6fs/blockdev"
	"github.com/diskfs/v6fs/filesystem/v6fs"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: v6sh <volume-path>")
		os.Exit(1)
	}

	sessionID := uuid.New().String()
	log := logrus.WithFields(logrus.Fields{"session": sessionID, "volume": os.Args[1]})

	vol, err := openOrCreate(os.Args[1], log)
	if err != nil && err != errUninitialized {
		log.WithError(err).Fatal("cannot open volume")
	}

	repl(vol, log)
}

// openOrCreate mirrors the "positional file argument" contract in §6: a
// missing backing file is created empty, and every command but initfs will
// fail FileSystemNotInitialized against it until initfs is run.
func openOrCreate(path string, log *logrus.Entry) (*v6fs.Volume, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info("backing file does not exist; creating empty, run initfs next")
		dev, err := blockdev.Create(path)
		if err != nil {
			return nil, err
		}
		_ = dev.Close()
		return nil, errUninitialized
	}
	return v6fs.Open(path)
}

var errUninitialized = fmt.Errorf("volume not initialized; run initfs first")

func repl(vol *v6fs.Volume, log *logrus.Entry) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("v6sh> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		args, err := shellwords.Parse(line)
		if err != nil || len(args) == 0 {
			continue
		}

		cmd, rest := args[0], args[1:]
		if vol == nil && cmd != "initfs" && cmd != "q" {
			fmt.Println("error: volume not initialized; run initfs first")
			continue
		}

		switch cmd {
		case "initfs":
			vol = handleInitFS(os.Args[1], rest, log)
		case "cpin":
			handle(log, rest, 2, func() error { return vol.CopyIn(rest[0], rest[1]) })
		case "cpout":
			handle(log, rest, 2, func() error { return vol.CopyOut(rest[0], rest[1]) })
		case "mkdir":
			handle(log, rest, 1, func() error { return vol.Mkdir(rest[0]) })
		case "rm":
			handle(log, rest, 1, func() error { return vol.Remove(rest[0]) })
		case "q":
			if vol != nil {
				if err := vol.Close(); err != nil {
					log.WithError(err).Error("close failed")
					os.Exit(1)
				}
			}
			return
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
	}
}

func handleInitFS(path string, rest []string, log *logrus.Entry) *v6fs.Volume {
	if len(rest) != 2 {
		fmt.Println("usage: initfs <numBlocks> <numInodes>")
		return nil
	}
	numBlocks, err1 := strconv.Atoi(rest[0])
	numInodes, err2 := strconv.Atoi(rest[1])
	if err1 != nil || err2 != nil {
		fmt.Println("usage: initfs <numBlocks> <numInodes>")
		return nil
	}
	vol, err := v6fs.InitFS(path, numBlocks, numInodes)
	if err != nil {
		log.WithError(err).Error("initfs failed")
		return nil
	}
	log.WithField("size", bytefmt.ByteSize(uint64(numBlocks)*blockdev.BlockSize)).Info("volume initialized")
	return vol
}

func handle(log *logrus.Entry, args []string, want int, fn func() error) {
	if len(args) != want {
		fmt.Println("error: wrong number of arguments")
		return
	}
	if err := fn(); err != nil {
		fmt.Println("error:", err)
		log.WithError(err).Debug("command failed")
	}
}
