package filter

import (
	"testing"

	"loof/model"
)

func TestParsePidFilter(t *testing.T) {
	f, err := ParsePidFilter("100,^200,300")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Include) != 2 || f.Include[0] != 100 || f.Include[1] != 300 {
		t.Errorf("Include = %v, want [100 300]", f.Include)
	}
	if len(f.Exclude) != 1 || f.Exclude[0] != 200 {
		t.Errorf("Exclude = %v, want [200]", f.Exclude)
	}
}

func TestParsePidFilterInvalid(t *testing.T) {
	if _, err := ParsePidFilter("abc"); err == nil {
		t.Error("expected error for invalid PID")
	}
}

func TestParseUserFilter(t *testing.T) {
	f := ParseUserFilter("admin,^nobody,www")
	if len(f.Include) != 2 || f.Include[0] != "admin" || f.Include[1] != "www" {
		t.Errorf("Include = %v", f.Include)
	}
	if len(f.Exclude) != 1 || f.Exclude[0] != "nobody" {
		t.Errorf("Exclude = %v", f.Exclude)
	}
}

func TestParseCommandFilter(t *testing.T) {
	inc := ParseCommandFilter("nginx")
	if len(inc.Include) != 1 || inc.Include[0] != "nginx" {
		t.Errorf("Include = %v", inc.Include)
	}
	exc := ParseCommandFilter("^nginx")
	if len(exc.Exclude) != 1 || exc.Exclude[0] != "nginx" {
		t.Errorf("Exclude = %v", exc.Exclude)
	}
}

func TestParseSizeFilter(t *testing.T) {
	tests := []struct {
		in    string
		op    SizeOp
		bytes uint64
	}{
		{"+1024", SizeGreaterThan, 1024},
		{"-512", SizeLessThan, 512},
		{"2048", SizeExact, 2048},
		{"+10M", SizeGreaterThan, 10 * 1024 * 1024},
		{"5KB", SizeExact, 5 * 1024},
		{"-2G", SizeLessThan, 2 * 1024 * 1024 * 1024},
	}
	for _, tt := range tests {
		f, err := ParseSizeFilter(tt.in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.in, err)
		}
		if f.Op != tt.op || f.Bytes != tt.bytes {
			t.Errorf("%s: got {%v %d}, want {%v %d}", tt.in, f.Op, f.Bytes, tt.op, tt.bytes)
		}
	}
}

func TestParseSizeFilterEmpty(t *testing.T) {
	f, err := ParseSizeFilter("")
	if err != nil || f != nil {
		t.Errorf("ParseSizeFilter(\"\") = (%v, %v), want (nil, nil)", f, err)
	}
}

func TestParseInetFilter(t *testing.T) {
	f := ParseInetFilter("6TCP@localhost:443")
	if !f.HasIPVer || f.IPVersion != 6 {
		t.Errorf("IPVersion = %v/%v", f.HasIPVer, f.IPVersion)
	}
	if f.Protocol != "TCP" {
		t.Errorf("Protocol = %q", f.Protocol)
	}
	if f.Host != "localhost" {
		t.Errorf("Host = %q", f.Host)
	}
	if !f.HasPort || f.Port != 443 {
		t.Errorf("Port = %v/%v", f.HasPort, f.Port)
	}
}

func TestParseInetFilterPortOnly(t *testing.T) {
	f := ParseInetFilter(":8080")
	if f.Protocol != "" || f.Host != "" {
		t.Errorf("expected only port set, got %+v", f)
	}
	if !f.HasPort || f.Port != 8080 {
		t.Errorf("Port = %v/%v", f.HasPort, f.Port)
	}
}

func TestParseInetFilterEmpty(t *testing.T) {
	f := ParseInetFilter("")
	if f.Protocol != "" || f.Host != "" || f.HasPort || f.HasIPVer {
		t.Errorf("expected zero value, got %+v", f)
	}
}

func makeProc(pid uint32, user, comm string) model.Process {
	return model.Process{PID: pid, User: user, Comm: comm, Command: comm}
}

func TestMatchesProcessPidInclude(t *testing.T) {
	c := &Config{Pids: &PidFilter{Include: []uint32{100, 200}}}
	if !c.MatchesProcess(makeProc(100, "root", "bash")) {
		t.Error("expected pid 100 to match")
	}
	if c.MatchesProcess(makeProc(300, "root", "bash")) {
		t.Error("expected pid 300 not to match")
	}
}

func TestMatchesProcessUser(t *testing.T) {
	c := &Config{Users: &UserFilter{Include: []string{"root"}}}
	if !c.MatchesProcess(makeProc(1, "root", "init")) {
		t.Error("expected root to match")
	}
	if c.MatchesProcess(makeProc(2, "www", "nginx")) {
		t.Error("expected www not to match")
	}
}

func TestMatchesProcessCommandPrefix(t *testing.T) {
	c := &Config{Command: &CommandFilter{Include: []string{"ngin"}}}
	if !c.MatchesProcess(makeProc(1, "root", "nginx")) {
		t.Error("expected nginx to match prefix")
	}
	if c.MatchesProcess(makeProc(2, "root", "bash")) {
		t.Error("expected bash not to match")
	}
}

func TestMatchesProcessAndMode(t *testing.T) {
	c := &Config{
		Pids:    &PidFilter{Include: []uint32{100}},
		Users:   &UserFilter{Include: []string{"root"}},
		AndMode: true,
	}
	if !c.MatchesProcess(makeProc(100, "root", "bash")) {
		t.Error("expected pid+user match in AND mode")
	}
	if c.MatchesProcess(makeProc(100, "www", "bash")) {
		t.Error("expected mismatch user to fail AND mode")
	}
	if c.MatchesProcess(makeProc(200, "root", "bash")) {
		t.Error("expected mismatch pid to fail AND mode")
	}
}

func TestMatchesProcessOrMode(t *testing.T) {
	c := &Config{
		Pids:  &PidFilter{Include: []uint32{100}},
		Users: &UserFilter{Include: []string{"www"}},
	}
	if !c.MatchesProcess(makeProc(100, "root", "bash")) {
		t.Error("expected pid match in OR mode")
	}
	if !c.MatchesProcess(makeProc(200, "www", "nginx")) {
		t.Error("expected user match in OR mode")
	}
	if c.MatchesProcess(makeProc(200, "root", "bash")) {
		t.Error("expected neither to match")
	}
}

func TestMatchesProcessPgidMissing(t *testing.T) {
	c := &Config{Pgids: &PgidFilter{Include: []uint32{42}}}
	p := makeProc(1, "root", "bash")
	pgid := uint32(42)
	p.PGID = &pgid
	if !c.MatchesProcess(p) {
		t.Error("expected matching pgid to pass")
	}

	p2 := makeProc(2, "root", "bash")
	other := uint32(99)
	p2.PGID = &other
	if c.MatchesProcess(p2) {
		t.Error("expected mismatched pgid to fail")
	}

	p3 := makeProc(3, "root", "bash")
	if c.MatchesProcess(p3) {
		t.Error("expected process with no pgid to fail when include list is non-empty")
	}
}

func makeFile(name string, ft model.FileTypeKind) model.Descriptor {
	return model.Descriptor{Name: name, FileType: model.FileType{Kind: ft}}
}

func TestMatchesFileName(t *testing.T) {
	c := &Config{Names: []string{"/tmp/test.txt"}}
	if !c.MatchesFile(makeFile("/tmp/test.txt", model.FTReg)) {
		t.Error("expected exact name match")
	}
	if c.MatchesFile(makeFile("/tmp/other.txt", model.FTReg)) {
		t.Error("expected no match for different name")
	}
}

func TestMatchesFileDirTree(t *testing.T) {
	c := &Config{DirTree: "/tmp"}
	if !c.MatchesFile(makeFile("/tmp/a/b/c.txt", model.FTReg)) {
		t.Error("expected nested file to match dir_tree")
	}
	if c.MatchesFile(makeFile("/var/log/syslog", model.FTReg)) {
		t.Error("expected unrelated path not to match")
	}
}

func TestMatchesFileDirNonRecursive(t *testing.T) {
	c := &Config{Dir: "/tmp"}
	if !c.MatchesFile(makeFile("/tmp/test.txt", model.FTReg)) {
		t.Error("expected direct child to match")
	}
	if c.MatchesFile(makeFile("/tmp/sub/test.txt", model.FTReg)) {
		t.Error("expected nested file not to match non-recursive dir")
	}
}

func TestInetFilterMatchesTCP(t *testing.T) {
	inet := &InetFilter{Protocol: "TCP", Port: 80, HasPort: true}
	d := makeFile("127.0.0.1:80 -> 10.0.0.1:12345 (ESTABLISHED)", model.FTIPv4)
	d.Node = "TCP"
	if !inet.MatchesFile(d) {
		t.Error("expected TCP port 80 to match")
	}
}

func TestInetFilterRejectsWrongProtocol(t *testing.T) {
	inet := &InetFilter{Protocol: "UDP"}
	d := makeFile("127.0.0.1:80 -> 10.0.0.1:12345", model.FTIPv4)
	d.Node = "TCP"
	if inet.MatchesFile(d) {
		t.Error("expected UDP filter to reject TCP entry")
	}
}

func TestInetFilterRejectsNonNetwork(t *testing.T) {
	inet := &InetFilter{}
	if inet.MatchesFile(makeFile("/tmp/test.txt", model.FTReg)) {
		t.Error("expected non-network file to be rejected")
	}
}

func TestNoFiltersMatchesEverything(t *testing.T) {
	c := &Config{}
	if !c.MatchesProcess(makeProc(1, "root", "init")) {
		t.Error("expected empty config to match any process")
	}
	if !c.MatchesFile(makeFile("/any/path", model.FTReg)) {
		t.Error("expected empty config to match any file")
	}
}

func TestParsePgidFilter(t *testing.T) {
	f, err := ParsePgidFilter("1234,5678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Include) != 2 || f.Include[0] != 1234 || f.Include[1] != 5678 {
		t.Errorf("Include = %v", f.Include)
	}

	f2, err := ParsePgidFilter("^1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f2.Exclude) != 1 || f2.Exclude[0] != 1234 {
		t.Errorf("Exclude = %v", f2.Exclude)
	}
}
