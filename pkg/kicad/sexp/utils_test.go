package sexp

import (
	"strings"
	"testing"
)

func TestFindNode(t *testing.T) {
	doc, err := ParseString(`(symbol (lib_id "Device:R") (at 100 50 90) (unit 1))`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	root := doc.Root()

	libNode, found := FindNode(root, "lib_id")
	if !found {
		t.Fatal("lib_id not found")
	}
	id, err := GetString(libNode, 1)
	if err != nil || id != "Device:R" {
		t.Errorf("Expected Device:R, got %q (err %v)", id, err)
	}

	atNode, found := FindNode(root, "at")
	if !found {
		t.Fatal("at not found")
	}
	pos, err := GetPosition(atNode)
	if err != nil {
		t.Fatalf("GetPosition failed: %v", err)
	}
	if pos.X != 100 || pos.Y != 50 || pos.Angle != 90 {
		t.Errorf("Unexpected position %+v", pos)
	}

	if _, found := FindNode(root, "missing"); found {
		t.Error("FindNode found a node that does not exist")
	}
}

func TestFindAllNodes(t *testing.T) {
	doc, err := ParseString(`(root (pin "1") (pin "2") (other) (pin "3"))`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	pins := FindAllNodes(doc.Root(), "pin")
	if len(pins) != 3 {
		t.Fatalf("Expected 3 pins, got %d", len(pins))
	}
	for i, want := range []string{"1", "2", "3"} {
		got, _ := GetString(pins[i], 1)
		if got != want {
			t.Errorf("Pin %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestHasFlag(t *testing.T) {
	doc, _ := ParseString(`(pin_numbers hide)`)
	if !HasFlag(doc.Root(), "hide") {
		t.Error("Expected hide flag")
	}
	doc2, _ := ParseString(`(pin_numbers "hide")`)
	if HasFlag(doc2.Root(), "hide") {
		t.Error("Quoted string must not count as a flag")
	}
}

func TestAppendChildIndentation(t *testing.T) {
	doc, err := ParseString("(kicad_sch\n\t(version 20231120)\n\t(paper \"A4\")\n)\n")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	label := Block(NewList("label", Str("VCC"),
		Block(NewList("at", Num(25.4), Num(50.8), Num(0))),
	))
	AppendChild(doc.Root(), label)

	out := string(doc.Bytes())
	want := "(kicad_sch\n\t(version 20231120)\n\t(paper \"A4\")\n\t(label \"VCC\"\n\t\t(at 25.4 50.8 0)\n\t)\n)\n"
	if out != want {
		t.Errorf("Unexpected formatting.\n--- got ---\n%q\n--- want ---\n%q", out, want)
	}
}

func TestRemoveChild(t *testing.T) {
	doc, err := ParseString("(root\n\t(a 1)\n\t(b 2)\n\t(c 3)\n)")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	root := doc.Root()
	b, _ := FindNode(root, "b")
	if !RemoveChild(root, b) {
		t.Fatal("RemoveChild failed")
	}

	out := string(doc.Bytes())
	if strings.Contains(out, "(b 2)") {
		t.Errorf("Removed node still present: %s", out)
	}
	if !strings.Contains(out, "(a 1)") || !strings.Contains(out, "(c 3)") {
		t.Errorf("Siblings disturbed: %s", out)
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		100:    "100",
		25.4:   "25.4",
		-0.0:   "0",
		1.2345: "1.2345",
	}
	for in, want := range cases {
		if got := FormatFloat(in); got != want {
			t.Errorf("FormatFloat(%v): expected %q, got %q", in, want, got)
		}
	}
}
