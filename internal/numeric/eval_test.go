package numeric

import "testing"

type fakeResolver struct {
	numbered map[int]float64
	named    map[string]float64
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{numbered: map[int]float64{}, named: map[string]float64{}}
}

func (f *fakeResolver) GetNumbered(n int) float64 { return f.numbered[n] }
func (f *fakeResolver) GetNamed(name string) (float64, bool) {
	v, ok := f.named[name]
	return v, ok
}

func TestEvalArithmeticPrecedence(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"2+3*4", 14},
		{"[2+3]*4", 20},
		{"2**3**2", 64}, // left-to-right per spec, not right-assoc
		{"10 MOD 3", 1},
		{"-3+4", 1},
		{"1 EQ 1", 1},
		{"1 NE 1.0000001", 0}, // within tolerance
		{"1 LT 2 AND 2 LT 3", 1},
	}
	for _, c := range cases {
		got, err := Eval(c.expr, nil)
		if err != nil {
			t.Fatalf("Eval(%q): %v", c.expr, err)
		}
		if got != c.want {
			t.Errorf("Eval(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvalDivideByZero(t *testing.T) {
	_, err := Eval("1/0", nil)
	if err == nil {
		t.Fatal("expected divide-by-zero error")
	}
}

func TestEvalParameters(t *testing.T) {
	r := newFakeResolver()
	r.numbered[100] = 14.0
	r.named["tool_length"] = 2.5

	got, err := Eval("#100", r)
	if err != nil || got != 14.0 {
		t.Fatalf("#100 = %v, %v", got, err)
	}
	got, err = Eval("#<tool_length>*2", r)
	if err != nil || got != 5.0 {
		t.Fatalf("#<tool_length>*2 = %v, %v", got, err)
	}
}

func TestEvalUnassignedNumberedReadsZero(t *testing.T) {
	r := newFakeResolver()
	got, err := Eval("#500", r)
	if err != nil || got != 0 {
		t.Fatalf("unassigned #500 = %v, %v, want 0, nil", got, err)
	}
}

func TestEvalExists(t *testing.T) {
	r := newFakeResolver()
	r.named["defined_one"] = 1
	got, _ := Eval("EXISTS[#<defined_one>]", r)
	if got != 1 {
		t.Errorf("EXISTS[defined] = %v, want 1", got)
	}
	got, _ = Eval("EXISTS[#<not_defined>]", r)
	if got != 0 {
		t.Errorf("EXISTS[not defined] = %v, want 0", got)
	}
}

func TestEvalAtan2(t *testing.T) {
	got, err := Eval("ATAN[1]/[1]", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 45 {
		t.Errorf("ATAN[1]/[1] = %v, want 45", got)
	}
}

func TestEvalTrigDegrees(t *testing.T) {
	got, err := Eval("SIN[90]", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got < 0.9999 || got > 1.0001 {
		t.Errorf("SIN[90] = %v, want ~1", got)
	}
}

func TestEvalDomainErrors(t *testing.T) {
	if _, err := Eval("SQRT[-1]", nil); err == nil {
		t.Error("expected domain error for SQRT[-1]")
	}
	if _, err := Eval("LN[0]", nil); err == nil {
		t.Error("expected domain error for LN[0]")
	}
	if _, err := Eval("ASIN[2]", nil); err == nil {
		t.Error("expected domain error for ASIN[2]")
	}
}

func TestEvalBracketedConsumesByteCount(t *testing.T) {
	v, n, err := EvalBracketed("[1+2] X10", nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != 3 || n != len("[1+2]") {
		t.Errorf("got v=%v n=%v", v, n)
	}
}
