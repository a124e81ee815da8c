package digest

import "testing"

func TestSumKnownVector(t *testing.T) {
	// Reference vector: the digest of "print(1)" is pinned. If this
	// test ever fails the algorithm changed and every trust list in
	// the field is invalid.
	const want = "d287bb7f9d15abdc5b6e98536263815744b6ef21c8f3c839fc434ca70d8efe99"

	got := Sum("print(1)")
	if string(got) != want {
		t.Fatalf("Sum(\"print(1)\") = %s, want %s", got, want)
	}
}

func TestSumStable(t *testing.T) {
	a := Sum("const x = 1;\nconsole.log(x);")
	b := Sum("const x = 1;\nconsole.log(x);")
	if a != b {
		t.Fatalf("same input produced different digests: %s vs %s", a, b)
	}
}

func TestSumDistinguishesContent(t *testing.T) {
	if Sum("print(1)") == Sum("print(2)") {
		t.Fatal("distinct inputs produced identical digests")
	}
	// Whitespace is content: trailing newline changes the digest.
	if Sum("print(1)") == Sum("print(1)\n") {
		t.Fatal("trailing newline did not change the digest")
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want Entry
	}{
		{"ABCD", "abcd"},
		{"  AbCd  \n", "abcd"},
		{"d287bb7f9d15abdc5b6e98536263815744b6ef21c8f3c839fc434ca70d8efe99",
			"d287bb7f9d15abdc5b6e98536263815744b6ef21c8f3c839fc434ca70d8efe99"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestShort(t *testing.T) {
	e := Sum("print(1)")
	if got := e.Short(); got != "d287bb7f9d15" {
		t.Errorf("Short() = %q, want d287bb7f9d15", got)
	}
	if got := Entry("abcd").Short(); got != "abcd" {
		t.Errorf("Short() on short entry = %q, want abcd", got)
	}
}
