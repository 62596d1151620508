package dnssd

import "testing"

func TestTextRecord_SetProperty(t *testing.T) {
	value := "v"

	txt, err := NewTextRecord("box._http._tcp.local.", 120)
	if err != nil {
		t.Fatalf("NewTextRecord() error = %v", err)
	}

	if err := txt.SetProperty("path", &value); err != nil {
		t.Fatalf("SetProperty(path) error = %v", err)
	}
	if err := txt.SetProperty("flag", nil); err != nil {
		t.Fatalf("SetProperty(flag) error = %v", err)
	}

	// Blank key fails fast
	if err := txt.SetProperty("", &value); err == nil {
		t.Error("SetProperty with blank key should fail")
	}

	// Duplicate key fails instead of overwriting
	other := "other"
	if err := txt.SetProperty("path", &other); err == nil {
		t.Error("SetProperty with duplicate key should fail")
	}
	if got, _ := txt.Get("path"); got != "v" {
		t.Errorf("Get(path) = %q after duplicate set, want %q", got, "v")
	}

	// Absent value reads as present key with empty value
	if got, ok := txt.Get("flag"); !ok || got != "" {
		t.Errorf("Get(flag) = (%q, %v), want (\"\", true)", got, ok)
	}
	if _, ok := txt.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}
}

func TestNewTextRecord_RequiresName(t *testing.T) {
	if _, err := NewTextRecord("", 0); err == nil {
		t.Error("NewTextRecord with empty name should fail")
	}
}

func TestNewService_RequiresName(t *testing.T) {
	if _, err := NewService("", 80, 120); err == nil {
		t.Error("NewService with empty name should fail")
	}
	svc, err := NewService("box._http._tcp.local.", 8080, 120)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if svc.Port != 8080 || svc.TTL != 120 {
		t.Errorf("NewService() = %+v, want port 8080 ttl 120", svc)
	}
}

func TestHost_FirstWinsAndDedupe(t *testing.T) {
	host := NewHost()

	host.setID("10.0.0.5")
	host.setID("10.0.0.9") // ignored: already set
	if host.ID != "10.0.0.5" {
		t.Errorf("ID = %q, want first assignment to win", host.ID)
	}

	host.setName("printer")
	host.setName("scanner") // ignored
	if host.Name != "printer" {
		t.Errorf("Name = %q, want first assignment to win", host.Name)
	}

	host.addAddr("10.0.0.5")
	host.addAddr("fe80::1")
	host.addAddr("10.0.0.5") // duplicate
	if len(host.Addrs) != 2 || host.Addrs[0] != "10.0.0.5" || host.Addrs[1] != "fe80::1" {
		t.Errorf("Addrs = %v, want deduplicated first-seen order", host.Addrs)
	}

	host.addName("a.local.")
	host.addName("b.local.")
	host.addName("a.local.")
	if len(host.Names) != 2 {
		t.Errorf("Names = %v, want deduplicated", host.Names)
	}
}

func TestHost_MergeOverwritesRecordsByName(t *testing.T) {
	host := NewHost()

	first, _ := NewService("box._http._tcp.local.", 80, 120)
	second, _ := NewService("box._http._tcp.local.", 8080, 60)

	update := NewHost()
	update.Services[first.Name] = first
	host.merge(update)

	update = NewHost()
	update.Services[second.Name] = second
	host.merge(update)

	if len(host.Services) != 1 {
		t.Fatalf("Services = %v, want single entry per name", host.Services)
	}
	if host.Services[second.Name].Port != 8080 {
		t.Errorf("Port = %d, want later record to overwrite", host.Services[second.Name].Port)
	}
}

func TestHost_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b *Host
		want bool
	}{
		{
			name: "same id and primary addr",
			a:    &Host{ID: "10.0.0.5", Addrs: []string{"10.0.0.5"}},
			b:    &Host{ID: "10.0.0.5", Addrs: []string{"10.0.0.5", "fe80::1"}},
			want: true,
		},
		{
			name: "different id",
			a:    &Host{ID: "10.0.0.5", Addrs: []string{"10.0.0.5"}},
			b:    &Host{ID: "10.0.0.9", Addrs: []string{"10.0.0.5"}},
			want: false,
		},
		{
			name: "different primary addr",
			a:    &Host{ID: "10.0.0.5", Addrs: []string{"10.0.0.5"}},
			b:    &Host{ID: "10.0.0.5", Addrs: []string{"fe80::1"}},
			want: false,
		},
		{
			name: "nil other",
			a:    &Host{ID: "10.0.0.5"},
			b:    nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHost_CloneIsIndependent(t *testing.T) {
	host := NewHost()
	host.setID("10.0.0.5")
	host.addAddr("10.0.0.5")
	svc, _ := NewService("box._http._tcp.local.", 80, 120)
	host.Services[svc.Name] = svc

	clone := host.clone()
	host.addAddr("10.0.0.6")
	other, _ := NewService("other._ipp._tcp.local.", 631, 120)
	host.Services[other.Name] = other

	if len(clone.Addrs) != 1 {
		t.Errorf("clone Addrs = %v, want unaffected by later mutation", clone.Addrs)
	}
	if len(clone.Services) != 1 {
		t.Errorf("clone Services = %v, want unaffected by later mutation", clone.Services)
	}
}
