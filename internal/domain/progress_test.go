package domain

import "testing"

func TestSynthesize(t *testing.T) {
	tests := []struct {
		name         string
		prev         float64
		step         float64
		wantProgress float64
		wantStep     string
		wantETA      string
		wantStatus   AnalysisStatus
	}{
		{"regular increment", 40, 10, 50, "Processing video frames...", "120s", StatusProcessing},
		{"step below minimum is raised", 10, 0.1, 10.5, "Processing video frames...", "180s", StatusProcessing},
		{"step above maximum is capped", 10, 40, 25, "Processing video frames...", "180s", StatusProcessing},
		{"capped at 100", 95, 10, 100, "Processing video frames...", "10s", StatusProcessing},
		{"already at 100 holds", 100, 5, 100, "Finalizing analysis...", "0s", StatusProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := InitialProgress()
			prev.Progress = tt.prev
			prev.StepsCompleted = []string{"Video loading"}

			got := Synthesize(prev, tt.step)

			if got.Progress != tt.wantProgress {
				t.Errorf("Progress = %v, want %v", got.Progress, tt.wantProgress)
			}
			if got.CurrentStep != tt.wantStep {
				t.Errorf("CurrentStep = %q, want %q", got.CurrentStep, tt.wantStep)
			}
			if got.EstimatedTimeRemaining != tt.wantETA {
				t.Errorf("EstimatedTimeRemaining = %q, want %q", got.EstimatedTimeRemaining, tt.wantETA)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", got.Status, tt.wantStatus)
			}
			if !got.Synthetic {
				t.Error("Synthetic = false, want true")
			}
			if len(got.StepsCompleted) != 1 {
				t.Errorf("StepsCompleted = %v, want previous steps kept", got.StepsCompleted)
			}
		})
	}
}

func TestSynthesize_NeverTerminal(t *testing.T) {
	p := InitialProgress()
	last := p.Progress

	for i := 0; i < 300; i++ {
		p = Synthesize(p, MinSynthesizedStep)
		if p.Status.IsTerminal() {
			t.Fatalf("estimate %d reported terminal status %s", i, p.Status)
		}
		if p.Progress < last {
			t.Fatalf("progress went backwards: %v -> %v", last, p.Progress)
		}
		if p.Progress > 100 {
			t.Fatalf("progress exceeded 100: %v", p.Progress)
		}
		last = p.Progress
	}

	if p.Progress != 100 || p.CurrentStep != "Finalizing analysis..." {
		t.Errorf("after repeated estimates got %v%% %q, want 100%% Finalizing analysis...", p.Progress, p.CurrentStep)
	}
}

func TestSynthesize_KeepsAwaitingConfirmation(t *testing.T) {
	prev := InitialProgress()
	prev.Status = StatusAwaitingConfirmation

	if got := Synthesize(prev, 10); got.Status != StatusAwaitingConfirmation {
		t.Errorf("Status = %s, want awaiting_confirmation", got.Status)
	}
}

func TestProgress_Normalize(t *testing.T) {
	p := Progress{Progress: 140}.Normalize()

	if p.Status != StatusProcessing {
		t.Errorf("Status = %s, want processing", p.Status)
	}
	if p.Progress != 100 {
		t.Errorf("Progress = %v, want 100", p.Progress)
	}
	if len(p.TotalSteps) != len(StageNames) {
		t.Errorf("TotalSteps = %v, want default stages", p.TotalSteps)
	}

	if got := (Progress{Progress: -3}).Normalize().Progress; got != 0 {
		t.Errorf("negative progress normalized to %v, want 0", got)
	}
}

func TestProgress_Stages(t *testing.T) {
	p := Progress{
		CurrentStep:    "Running pose detection on frame 120",
		StepsCompleted: []string{"Video loading"},
		TotalSteps:     StageNames,
	}

	want := []StageState{StageCompleted, StageCurrent, StagePending, StagePending, StagePending}
	stages := p.Stages()

	if len(stages) != len(want) {
		t.Fatalf("len(Stages()) = %d, want %d", len(stages), len(want))
	}
	for i, s := range stages {
		if s.Name != StageNames[i] {
			t.Errorf("stage %d name = %q, want %q", i, s.Name, StageNames[i])
		}
		if s.State != want[i] {
			t.Errorf("stage %q = %s, want %s", s.Name, s.State, want[i])
		}
	}
}

func TestProgress_StagesDefaultsWhenTotalMissing(t *testing.T) {
	stages := Progress{}.Stages()
	if len(stages) != len(StageNames) {
		t.Errorf("len(Stages()) = %d, want %d", len(stages), len(StageNames))
	}
}
