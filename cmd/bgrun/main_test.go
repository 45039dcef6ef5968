package main

import (
	"testing"
)

func TestBuildRootHasSubcommands(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{"start": false, "stop": false, "status": false, "logs": false, "serve": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestStartRequiresFlags(t *testing.T) {
	root := buildRoot()
	root.SetArgs([]string{"start"})
	if err := root.Execute(); err == nil {
		t.Fatal("start without --name/--cmd should fail")
	}
}

func TestStopRequiresName(t *testing.T) {
	root := buildRoot()
	root.SetArgs([]string{"stop"})
	if err := root.Execute(); err == nil {
		t.Fatal("stop without --name should fail")
	}
}
