package core

import (
	"encoding/json"
	"testing"
)

func TestCleanCollapse(t *testing.T) {
	x := MapOf(
		"a", MapOf(TextKey, "hello"),
		"b", MapOf(TextKey, "TRUE"),
		"c", MapOf(AttrKey, MapOf("x", "false"), TextKey, "text"),
		"d", []interface{}{MapOf(TextKey, "1"), MapOf(TextKey, "false")},
		"e", NewMap(),
	)
	got := Clean(x).(*Map)

	if s, _ := got.String("a"); s != "hello" {
		t.Fatal(got)
	}
	if b, _ := got.Get("b"); b != true {
		t.Fatal(b)
	}
	c, _ := got.Map("c")
	if b, _ := c.Attrs().Get("x"); b != false {
		t.Fatal(b)
	}
	if s, _ := c.String(TextKey); s != "text" {
		t.Fatal(c)
	}
	d, _ := got.Get("d")
	if ds := AsList(d); len(ds) != 2 || ds[0] != "1" || ds[1] != false {
		t.Fatal(d)
	}
	if e, _ := got.Map("e"); e.Len() != 0 {
		t.Fatal(e)
	}

	// Clean doesn't touch its input.
	if a, _ := x.Map("a"); a == nil {
		t.Fatal("input modified")
	}
}

func TestCleanIdempotent(t *testing.T) {
	x := MapOf(
		"a", MapOf(TextKey, MapOf(TextKey, "true")),
		"b", []interface{}{MapOf(TextKey, "x"), MapOf("c", MapOf(TextKey, "y"))},
		"c", MapOf(AttrKey, MapOf("k", "v")),
	)
	once := Clean(x)
	twice := Clean(once)
	if !once.(*Map).Equal(twice.(*Map)) {
		js1, _ := json.Marshal(once)
		js2, _ := json.Marshal(twice)
		t.Fatalf("%s != %s", js1, js2)
	}
}

func TestMapOrder(t *testing.T) {
	m := NewMap()
	for _, k := range []string{"z", "a", "m"} {
		m.Set(k, k)
	}
	m.Set("a", "again")
	js, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(js) != `{"z":"z","a":"again","m":"m"}` {
		t.Fatal(string(js))
	}
	m.Delete("z")
	if ks := m.Keys(); len(ks) != 2 || ks[0] != "a" {
		t.Fatal(ks)
	}
}
