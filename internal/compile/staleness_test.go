package compile

import (
	"testing"
	"time"

	"github.com/gren-lang/grenc/internal/modname"
)

func TestStaleNilRecordIsAlwaysStale(t *testing.T) {
	var l *Local
	if !l.Stale(time.Now(), nil, nil) {
		t.Fatalf("a nil Local must always be reported stale")
	}
}

func TestStaleModTimeChangeIsStale(t *testing.T) {
	then := time.Now()
	l := &Local{Module: "Main", ModTime: then}
	now := then.Add(time.Second)
	if !l.Stale(now, nil, nil) {
		t.Fatalf("a changed modtime must be reported stale")
	}
}

func TestStaleModTimeRollbackIsStale(t *testing.T) {
	then := time.Now()
	l := &Local{Module: "Main", ModTime: then}
	earlier := then.Add(-time.Second)
	if !l.Stale(earlier, nil, nil) {
		t.Fatalf("checking out an older revision must be reported stale (time-equality, not inequality)")
	}
}

func TestStaleUnchangedModTimeAndImportsIsFresh(t *testing.T) {
	now := time.Now()
	l := &Local{Module: "Main", ModTime: now, LastCompile: 5}
	lastChange := map[modname.Raw]uint64{"Helper": 3}
	if l.Stale(now, []modname.Raw{"Helper"}, lastChange) {
		t.Fatalf("unchanged modtime with an import that changed before our last compile must be fresh")
	}
}

func TestStaleImportChangedAfterOurLastCompileIsStale(t *testing.T) {
	now := time.Now()
	l := &Local{Module: "Main", ModTime: now, LastCompile: 2}
	lastChange := map[modname.Raw]uint64{"Helper": 3}
	if !l.Stale(now, []modname.Raw{"Helper"}, lastChange) {
		t.Fatalf("an import whose interface changed after our last compile must be reported stale")
	}
}
