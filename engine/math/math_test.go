package math

import (
	"testing"
)

const tolerance = 1e-5

func TestMat4MulIdentity(t *testing.T) {
	a := NewMat4Translation(NewVec3(1, 2, 3)).Mul(NewMat4EulerY(0.7))
	if got := a.Mul(NewMat4Identity()); !got.Compare(a, tolerance) {
		t.Errorf("a*I != a: %v", got.Data)
	}
	if got := NewMat4Identity().Mul(a); !got.Compare(a, tolerance) {
		t.Errorf("I*a != a: %v", got.Data)
	}
}

func TestMat4MulOrder(t *testing.T) {
	// Row vectors: scale first, then translate.
	st := NewMat4Scale(NewVec3(2, 2, 2)).Mul(NewMat4Translation(NewVec3(1, 0, 0)))
	p := NewVec4(1, 0, 0, 1).Transform(st)
	if !p.ToVec3().Compare(NewVec3(3, 0, 0), tolerance) {
		t.Errorf("expected (3,0,0), got %v", p)
	}

	ts := NewMat4Translation(NewVec3(1, 0, 0)).Mul(NewMat4Scale(NewVec3(2, 2, 2)))
	p = NewVec4(1, 0, 0, 1).Transform(ts)
	if !p.ToVec3().Compare(NewVec3(4, 0, 0), tolerance) {
		t.Errorf("expected (4,0,0), got %v", p)
	}
}

func TestMat4Transposed(t *testing.T) {
	tr := NewMat4Translation(NewVec3(4, 5, 6)).Transposed()
	if tr.Data[3] != 4 || tr.Data[7] != 5 || tr.Data[11] != 6 || tr.Data[12] != 0 {
		t.Errorf("unexpected transposed translation: %v", tr.Data)
	}
	if back := tr.Transposed(); !back.Compare(NewMat4Translation(NewVec3(4, 5, 6)), 0) {
		t.Errorf("double transpose is not the original: %v", back.Data)
	}
}

func TestMat4Inverse(t *testing.T) {
	tr := NewMat4Translation(NewVec3(0, 0, -0.5))
	inv := tr.Inverse()
	if !inv.Compare(NewMat4Translation(NewVec3(0, 0, 0.5)), tolerance) {
		t.Errorf("unexpected inverse translation: %v", inv.Data)
	}

	a := NewMat4EulerY(1.1).Mul(NewMat4Scale(NewVec3(2, 3, 4))).Mul(NewMat4Translation(NewVec3(-1, 7, 0.25)))
	if got := a.Mul(a.Inverse()); !got.Compare(NewMat4Identity(), 1e-4) {
		t.Errorf("a*inv(a) != I: %v", got.Data)
	}
	if got := a.Inverse().Mul(a); !got.Compare(NewMat4Identity(), 1e-4) {
		t.Errorf("inv(a)*a != I: %v", got.Data)
	}
}

func TestMat4EulerY(t *testing.T) {
	r := NewMat4EulerY(K_HALF_PI)
	// +X turns towards -Z for a quarter turn.
	p := NewVec4(1, 0, 0, 1).Transform(r)
	if !p.ToVec3().Compare(NewVec3(0, 0, -1), tolerance) {
		t.Errorf("expected (0,0,-1), got %v", p)
	}
	full := NewMat4EulerY(K_PI_2)
	if !full.Compare(NewMat4Identity(), tolerance) {
		t.Errorf("full turn is not identity: %v", full.Data)
	}
}

func TestMat4MulScalar(t *testing.T) {
	s := NewMat4Identity().MulScalar(2)
	for i, v := range s.Data {
		want := float32(0)
		if i%5 == 0 {
			want = 2
		}
		if v != want {
			t.Fatalf("element %d: expected %f, got %f", i, want, v)
		}
	}
}

func TestMat4LookAtLH(t *testing.T) {
	view := NewMat4LookAtLH(NewVec3(0, 0, -1), NewVec3Zero(), NewVec3Up())
	want := NewMat4Translation(NewVec3(0, 0, 1))
	if !view.Compare(want, tolerance) {
		t.Errorf("unexpected view matrix: %v", view.Data)
	}

	p := NewVec4(0, 0, 0, 1).Transform(view)
	if !p.ToVec3().Compare(NewVec3(0, 0, 1), tolerance) {
		t.Errorf("origin should be one unit in front of the eye, got %v", p)
	}
}

func TestMat4PerspectiveFovLH(t *testing.T) {
	proj := NewMat4PerspectiveFovLH(K_HALF_PI, 2, 0.1, 20)
	if !NearlyEqual(proj.Data[5], float32(1), tolerance) {
		t.Errorf("expected y scale 1, got %f", proj.Data[5])
	}
	if !NearlyEqual(proj.Data[0], float32(0.5), tolerance) {
		t.Errorf("expected x scale 0.5, got %f", proj.Data[0])
	}
	if proj.Data[11] != 1 || proj.Data[15] != 0 {
		t.Errorf("w must carry view depth: %v", proj.Data)
	}

	near := NewVec4(0, 0, 0.1, 1).Transform(proj)
	if !NearlyEqual(near.Z/near.W, float32(0), tolerance) {
		t.Errorf("near plane should map to depth 0, got %f", near.Z/near.W)
	}
	far := NewVec4(0, 0, 20, 1).Transform(proj)
	if !NearlyEqual(far.Z/far.W, float32(1), tolerance) {
		t.Errorf("far plane should map to depth 1, got %f", far.Z/far.W)
	}
}

func TestVec3CrossAndNormalize(t *testing.T) {
	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)
	if got := x.Cross(y); !got.Compare(NewVec3(0, 0, 1), 0) {
		t.Errorf("expected +Z, got %v", got)
	}
	if got := NewVec3(3, 0, 4).Normalized(); !got.Compare(NewVec3(0.6, 0, 0.8), tolerance) {
		t.Errorf("unexpected normalized vector %v", got)
	}
	if got := NewVec3Zero().Normalized(); got != NewVec3Zero() {
		t.Errorf("zero vector should stay zero, got %v", got)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Errorf("clamp failed")
	}
	if !NearlyEqual(DegToRad(180), K_PI, tolerance) {
		t.Errorf("expected pi, got %f", DegToRad(180))
	}
}
