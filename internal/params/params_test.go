package params

import (
	"testing"

	"fluidnc/internal/kinematics"
)

func testConfig() *kinematics.Config {
	return &kinematics.Config{NAxis: 3}
}

func TestUnassignedUserParamReadsZero(t *testing.T) {
	s := NewStore(NewMemStore(), testConfig())
	if v := s.GetNumbered(100); v != 0 {
		t.Errorf("unassigned #100 = %v, want 0", v)
	}
}

func TestUserParamRoundTrip(t *testing.T) {
	s := NewStore(NewMemStore(), testConfig())
	s.SetNumbered(100, 3.5)
	if v := s.GetNumbered(100); v != 3.5 {
		t.Errorf("#100 = %v, want 3.5", v)
	}
	// Out of user range (below 31, above 5000) writes go nowhere and
	// read back as 0 via the default case.
	s.SetNumbered(10, 9)
	if v := s.GetNumbered(10); v != 0 {
		t.Errorf("#10 (below user range) = %v, want 0", v)
	}
}

func TestProbeResultIsReadOnly(t *testing.T) {
	s := NewStore(NewMemStore(), testConfig())
	s.SetProbeResult([kinematics.MaxAxes]float64{1, 2, 3}, true)
	if v := s.GetNumbered(probeBase); v != 1 {
		t.Errorf("#5061 = %v, want 1", v)
	}
	if v := s.GetNumbered(probeOKParam); v != 1 {
		t.Errorf("#5070 = %v, want 1 (contacted)", v)
	}

	// Attempting to write a probe-position parameter directly must be
	// silently ignored.
	s.SetNumbered(probeBase, 999)
	if v := s.GetNumbered(probeBase); v != 1 {
		t.Errorf("write to read-only #5061 must be ignored, got %v", v)
	}
}

func TestG92PersistsThenClearsOnReset(t *testing.T) {
	s := NewStore(NewMemStore(), testConfig())
	s.SetNumbered(g92Base, 5)
	if v := s.GetNumbered(g92Base); v != 5 {
		t.Fatalf("#5211 = %v, want 5", v)
	}
	s.ResetG92()
	if v := s.GetNumbered(g92Base); v != 0 {
		t.Errorf("#5211 after ResetG92 = %v, want 0", v)
	}
}

func TestCoordSystemSlotsAreTwentyApart(t *testing.T) {
	s := NewStore(NewMemStore(), testConfig())
	var g54 [kinematics.MaxAxes]float64
	g54[0] = 1
	var g55 [kinematics.MaxAxes]float64
	g55[0] = 2
	s.SetCoordOffset(G54, g54)
	s.SetCoordOffset(G55, g55)

	if v := s.GetNumbered(coordBase); v != 1 {
		t.Errorf("#5221 (G54 X) = %v, want 1", v)
	}
	if v := s.GetNumbered(coordBase + 20); v != 2 {
		t.Errorf("#5241 (G55 X) = %v, want 2", v)
	}
}

func TestActiveWCSParamIsOneBased(t *testing.T) {
	s := NewStore(NewMemStore(), testConfig())
	if v := s.GetNumbered(activeWCSParam); v != 1 {
		t.Errorf("#5220 default = %v, want 1 (G54)", v)
	}
	s.SetActiveWCS(G56)
	if v := s.GetNumbered(activeWCSParam); v != 3 {
		t.Errorf("#5220 after selecting G56 = %v, want 3", v)
	}
	// Writing the param directly should also move the active WCS.
	s.SetNumbered(activeWCSParam, 2)
	if s.ActiveWCS() != G55 {
		t.Errorf("ActiveWCS after writing #5220=2 = %v, want G55", s.ActiveWCS())
	}
}

func TestWposIsReadOnlyAndComputed(t *testing.T) {
	s := NewStore(NewMemStore(), testConfig())
	s.SetWposFn(func() [kinematics.MaxAxes]float64 {
		var p [kinematics.MaxAxes]float64
		p[1] = 42
		return p
	})
	if v := s.GetNumbered(wposBase + 1); v != 42 {
		t.Errorf("#5421 = %v, want 42", v)
	}
	s.SetNumbered(wposBase+1, 0)
	if v := s.GetNumbered(wposBase + 1); v != 42 {
		t.Error("wpos write must be ignored, live value must still be reported")
	}
}

func TestG28G30HomePositionsAreReadOnly(t *testing.T) {
	s := NewStore(NewMemStore(), testConfig())
	var pos [kinematics.MaxAxes]float64
	pos[2] = 7
	s.SetHomePosition(G28, pos)
	if v := s.GetNumbered(g28Base + 2); v != 7 {
		t.Errorf("#5163 = %v, want 7", v)
	}
	s.SetNumbered(g28Base+2, 0)
	if v := s.GetNumbered(g28Base + 2); v != 7 {
		t.Error("G28 parameter write must be ignored")
	}
}

func TestToolParamRoundTrip(t *testing.T) {
	s := NewStore(NewMemStore(), testConfig())
	s.SetNumbered(toolParam, 4)
	if s.Tool() != 4 {
		t.Errorf("Tool() = %v, want 4", s.Tool())
	}
	if v := s.GetNumbered(toolParam); v != 4 {
		t.Errorf("#5400 = %v, want 4", v)
	}
}
