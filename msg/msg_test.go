package msg

import "testing"

func TestTextRoundTrip(t *testing.T) {
	m := New()
	m.AddVocab("list")
	m.AddVocab("out")
	m.AddString("/dest")
	text := m.String()
	if text != "[list] [out] /dest" {
		t.Fatalf("text form = %q", text)
	}
	back := Parse(text)
	if back.Size() != 3 {
		t.Fatalf("parsed size = %d", back.Size())
	}
	if back.Get(0).Kind() != KindVocab || back.Get(0).AsString() != "list" {
		t.Fatalf("first token = %+v", back.Get(0))
	}
	if back.Get(2).AsString() != "/dest" {
		t.Fatalf("third token = %q", back.Get(2).AsString())
	}
}

func TestNestedListsAndQuoting(t *testing.T) {
	m := New()
	m.AddString("prop")
	m.AddString("set")
	m.AddString("/port")
	sched := m.AddList()
	sched.AddString("sched")
	inner := sched.AddList()
	inner.AddString("priority")
	inner.AddInt(30)

	back := Parse(m.String())
	group := back.Get(3).AsList()
	if group == nil || group.Get(0).AsString() != "sched" {
		t.Fatalf("nested group lost: %q", m.String())
	}
	pri := group.Get(1).AsList()
	if pri == nil || pri.Find("priority").AsInt() != 30 {
		t.Fatalf("nested property lost: %q", m.String())
	}

	q := New().AddString("two words")
	if Parse(q.String()).Get(0).AsString() != "two words" {
		t.Fatalf("quoted string lost: %q", q.String())
	}
}

func TestFindAndCheck(t *testing.T) {
	reply := Parse("(carrier tcp) (push 1) (connectionless 0)")
	if !reply.Check("carrier") {
		t.Fatalf("carrier property not found in %q", reply.String())
	}
	if got := reply.Find("carrier").AsString(); got != "tcp" {
		t.Fatalf("carrier = %q", got)
	}
	if !reply.Find("push").AsBool() {
		t.Fatalf("push flag lost")
	}
	if reply.Find("connectionless").AsBool() {
		t.Fatalf("connectionless flag should be false")
	}
	if reply.Check("missing") {
		t.Fatalf("missing key reported present")
	}

	flat := Parse("carrier udp")
	if got := flat.Find("carrier").AsString(); got != "udp" {
		t.Fatalf("flat pair carrier = %q", got)
	}
}

func TestVocabPack(t *testing.T) {
	v := Vocab("add")
	if got := Unpack(v.Pack()); got != "add" {
		t.Fatalf("pack/unpack = %q", got)
	}
	if Vocab("delete").AsString() != "dele" {
		t.Fatalf("vocab should truncate to four characters")
	}
}

func TestParseStatus(t *testing.T) {
	ok := ParseStatus(Parse(`0 "Added connection"`))
	if !ok.Ok || ok.Legacy {
		t.Fatalf("structured success misread: %+v", ok)
	}
	bad := ParseStatus(Parse(`-1 "no such port"`))
	if bad.Ok {
		t.Fatalf("structured failure misread: %+v", bad)
	}
	legacy := ParseStatus(New().AddString("Added connection"))
	if !legacy.Ok || !legacy.Legacy {
		t.Fatalf("legacy success misread: %+v", legacy)
	}
	denied := ParseStatus(New().AddString("Denied"))
	if denied.Ok {
		t.Fatalf("legacy failure misread: %+v", denied)
	}
	if ParseStatus(nil).Ok {
		t.Fatalf("nil reply cannot be ok")
	}
}
