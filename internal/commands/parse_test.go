package commands

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		text string
		verb string
		args int
		ok   bool
	}{
		{"!task Learn Go", VerbTask, 2, true},
		{"  !TASK   spaced   out  ", VerbTask, 2, true},
		{"!Approve @bob", VerbApprove, 1, true},
		{"!help", VerbHelp, 0, true},
		{"!unknown thing", "", 0, false},
		{"hello chat", "", 0, false},
		{"   ", "", 0, false},
	}
	for _, tc := range cases {
		cmd, ok := Parse(tc.text)
		if ok != tc.ok {
			t.Fatalf("Parse(%q) ok = %v, want %v", tc.text, ok, tc.ok)
		}
		if cmd.Verb != tc.verb || len(cmd.Args) != tc.args {
			t.Fatalf("Parse(%q) = %+v, want verb %q with %d args", tc.text, cmd, tc.verb, tc.args)
		}
	}
}

func TestCommandRest(t *testing.T) {
	cmd, _ := Parse("!addtask Viewers  drink   water")
	if got := cmd.Arg(0); got != "Viewers" {
		t.Fatalf("Arg(0) = %q, want Viewers", got)
	}
	if got := cmd.Rest(1); got != "drink   water" {
		t.Fatalf("Rest(1) = %q, want %q", got, "drink   water")
	}
	if got := cmd.Rest(0); got != "Viewers  drink   water" {
		t.Fatalf("Rest(0) = %q, want the line after the verb", got)
	}
	if got := (Command{Verb: VerbTask}).Rest(0); got != "" {
		t.Fatalf("Rest(0) on bare verb = %q, want empty", got)
	}
	if got := cmd.Rest(5); got != "" {
		t.Fatalf("Rest(5) = %q, want empty", got)
	}
}
