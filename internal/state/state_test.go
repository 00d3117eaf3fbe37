package state

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want Class
	}{
		{"", ClassOther},
		{"Requesting", ClassOther},
		{"WaitInit", ClassOther},
		{"Ringing", ClassRinging},
		{"CALL_RINGING", ClassRinging},
		{"Established", ClassConnected},
		{"connected", ClassConnected},
		{"CallState.ACTIVE", ClassConnected},
		{"Busy", ClassTerminal},
		{"CALL_FAILED", ClassTerminal},
		{"Ended", ClassTerminal},
		{"PeerDiscarded", ClassTerminal},
		{"HangupRequested", ClassTerminal},
		{"ConnectionClosed", ClassTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Classify(tt.raw); got != tt.want {
				t.Errorf("Classify(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestClassifyTerminalWinsOverConnected(t *testing.T) {
	// "CallEnded" contains "ended" but also feeds through the connected
	// markers; terminal classification must take priority.
	if got := Classify("ActiveCallEnded"); got != ClassTerminal {
		t.Errorf("expected terminal classification, got %d", got)
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal("busy") {
		t.Error("expected busy to be terminal")
	}
	if IsTerminal("ringing") {
		t.Error("did not expect ringing to be terminal")
	}
}
