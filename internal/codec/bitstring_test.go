package codec

import "testing"

func TestCreateList(t *testing.T) {
	list := CreateList(100)
	if list.Length() != 100 {
		t.Errorf("expected length 100, got %d", list.Length())
	}

	list = CreateList(0)
	if list.Length() != 1 {
		t.Errorf("expected length 1 for zero size, got %d", list.Length())
	}
}

func TestSetStatusGetStatus(t *testing.T) {
	list := CreateList(64)

	cases := []struct {
		index int
		value bool
	}{
		{0, true},
		{1, false},
		{7, true},
		{8, false},
		{63, true},
	}

	for _, c := range cases {
		if err := list.SetStatus(c.index, c.value); err != nil {
			t.Fatalf("SetStatus(%d): %v", c.index, err)
		}
		got, err := list.GetStatus(c.index)
		if err != nil {
			t.Fatalf("GetStatus(%d): %v", c.index, err)
		}
		if got != c.value {
			t.Errorf("index %d: expected %v, got %v", c.index, c.value, got)
		}
	}
}

func TestSetStatusExpands(t *testing.T) {
	list := CreateList(8)
	if err := list.SetStatus(100, true); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if list.Length() <= 100 {
		t.Fatalf("expected list to expand past index 100, length is %d", list.Length())
	}
	got, err := list.GetStatus(100)
	if err != nil || !got {
		t.Fatalf("expected bit 100 set after expand, got %v, err %v", got, err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	list := CreateList(100000)
	for _, idx := range []int{1, 2, 3, 99999} {
		if err := list.SetStatus(idx, true); err != nil {
			t.Fatalf("SetStatus(%d): %v", idx, err)
		}
	}

	encoded, err := EncodeList(list)
	if err != nil {
		t.Fatalf("EncodeList: %v", err)
	}
	if encoded == "" {
		t.Fatal("expected non-empty encoded list")
	}

	decoded, err := DecodeList(encoded)
	if err != nil {
		t.Fatalf("DecodeList: %v", err)
	}

	for idx := 0; idx < 100000; idx++ {
		want := idx == 1 || idx == 2 || idx == 3 || idx == 99999
		got, err := decoded.GetStatus(idx)
		if err != nil {
			t.Fatalf("GetStatus(%d): %v", idx, err)
		}
		if got != want {
			t.Fatalf("index %d: expected %v, got %v", idx, want, got)
		}
	}
}

func TestDecodeEmptyList(t *testing.T) {
	decoded, err := DecodeList("")
	if err != nil {
		t.Fatalf("DecodeList(\"\"): %v", err)
	}
	if decoded.Length() != 0 {
		t.Errorf("expected length 0, got %d", decoded.Length())
	}
}

func TestSetStatusNegativeIndex(t *testing.T) {
	list := CreateList(8)
	if err := list.SetStatus(-1, true); err == nil {
		t.Fatal("expected error for negative index")
	}
}
