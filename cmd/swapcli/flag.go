package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
)

// flHex returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided. This
// function follows Go's flag package convention.
// If given value cannot be deserialized to required type, process is
// terminated.
func flHex(fl *flag.FlagSet, name, defaultVal, usage string) *[]byte {
	var b []byte
	if defaultVal != "" {
		var err error
		b, err = hex.DecodeString(defaultVal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q hex encoded flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var((*flagbyte)(&b), name, usage)
	return &b
}

type flagbyte []byte

func (b flagbyte) String() string {
	return hex.EncodeToString(b)
}

func (b *flagbyte) Set(raw string) error {
	val, err := hex.DecodeString(raw)
	if err != nil {
		return err
	}
	*b = val
	return nil
}

// flList returns a value collecting every occurrence of the flag.
func flList(fl *flag.FlagSet, name, usage string) *[]string {
	var l []string
	fl.Var((*flaglist)(&l), name, usage)
	return &l
}

type flaglist []string

func (l flaglist) String() string {
	return strings.Join(l, ",")
}

func (l *flaglist) Set(raw string) error {
	*l = append(*l, raw)
	return nil
}

// policyPath maps contract ids to a branch choice. An entry without an id
// is used for every contract that has no explicit choice.
func policyPath(entries []string, ids []string) (map[string]string, error) {
	var fallback string
	explicit := make(map[string]string)
	for _, e := range entries {
		i := strings.IndexByte(e, '=')
		if i < 0 {
			if fallback != "" && fallback != e {
				return nil, fmt.Errorf("more than one default branch: %q and %q", fallback, e)
			}
			fallback = e
			continue
		}
		id, choice := e[:i], e[i+1:]
		if id == "" || choice == "" {
			return nil, fmt.Errorf("invalid path %q, want <contract id>=<branch>", e)
		}
		explicit[id] = choice
	}
	path := make(map[string]string, len(ids))
	for _, id := range ids {
		if choice, ok := explicit[id]; ok {
			path[id] = choice
			delete(explicit, id)
		} else if fallback != "" {
			path[id] = fallback
		}
	}
	for id := range explicit {
		return nil, fmt.Errorf("path given for unknown contract %s", id)
	}
	return path, nil
}

// flagDie terminates the program when a flag parsing was not successful. This
// is a variable so that it can be overwritten for the tests.
var flagDie = func(description string, args ...interface{}) {
	s := fmt.Sprintf(description, args...)
	fmt.Fprintln(os.Stderr, s)
	os.Exit(2)
}
