package cmd

import "testing"

func assertArgsEqual(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPreprocessArgsDirTree(t *testing.T) {
	got := PreprocessArgs([]string{"+D", "/tmp"})
	assertArgsEqual(t, got, []string{"--dir-tree", "/tmp"})
}

func TestPreprocessArgsDir(t *testing.T) {
	got := PreprocessArgs([]string{"+d", "/var"})
	assertArgsEqual(t, got, []string{"--dir", "/var"})
}

func TestPreprocessArgsCmdWidth(t *testing.T) {
	got := PreprocessArgs([]string{"+c", "15"})
	assertArgsEqual(t, got, []string{"--cmd-width", "15"})
}

func TestPreprocessArgsMixed(t *testing.T) {
	got := PreprocessArgs([]string{"-p", "1234", "+D", "/tmp", "-t"})
	assertArgsEqual(t, got, []string{"-p", "1234", "--dir-tree", "/tmp", "-t"})
}

func TestPreprocessArgsNoPlusFlags(t *testing.T) {
	in := []string{"-p", "1234", "-n"}
	got := PreprocessArgs(in)
	assertArgsEqual(t, got, in)
}
