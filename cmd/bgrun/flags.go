package main

import "time"

// StartFlags Flag structs to decouple cobra from logic for testing.
type StartFlags struct {
	ConfigPath string
	Name       string
	Cmd        string
	WorkDir    string
	Scope      string
	EnvKVs     []string
	// Remote daemon connection
	APIUrl     string
	APITimeout time.Duration
}

type StopFlags struct {
	ConfigPath string
	Name       string
	Scope      string
	APIUrl     string
	APITimeout time.Duration
}

type StatusFlags struct {
	ConfigPath string
	Scope      string
	JSON       bool
	APIUrl     string
	APITimeout time.Duration
}

type LogsFlags struct {
	ConfigPath string
	Name       string
	Scope      string
	Lines      int
	APIUrl     string
	APITimeout time.Duration
}

type ServeFlags struct {
	ConfigPath string
	Daemonize  bool
	PidFile    string
	LogFile    string
}
