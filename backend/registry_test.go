package backend

import "testing"

func TestRegistryDefault(t *testing.T) {
	// The headless device registers itself on import and must always be
	// selectable.
	d := Default()
	if d == nil {
		t.Fatal("Default() = nil, want a device")
	}
}

func TestRegistryGet(t *testing.T) {
	if d := Get(DeviceHeadless); d == nil {
		t.Error("Get(headless) = nil, want a device")
	}
	if d := Get("nonexistent"); d != nil {
		t.Errorf("Get(nonexistent) = %v, want nil", d)
	}
}

func TestRegistryRegisterUnregister(t *testing.T) {
	Register("test-device", func() Device {
		return NewHeadlessDevice()
	})

	if !IsRegistered("test-device") {
		t.Error("test-device should be registered")
	}

	Unregister("test-device")

	if IsRegistered("test-device") {
		t.Error("test-device should be unregistered")
	}
}

func TestRegistryIsRegistered(t *testing.T) {
	if !IsRegistered(DeviceHeadless) {
		t.Error("headless should be registered")
	}
	if IsRegistered("nonexistent") {
		t.Error("nonexistent should not be registered")
	}
}

func TestRegistryInitDefault(t *testing.T) {
	d, err := InitDefault()
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	defer d.Close()

	// Verify it's initialized by using it.
	obj, err := d.Allocate(bufferDesc("probe", 16))
	if err != nil {
		t.Fatalf("Allocate() on default device error = %v", err)
	}
	d.Release(obj)
}

func TestDescriptorCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b Descriptor
		want bool
	}{
		{
			name: "identical textures",
			a:    textureDesc("a", 64, 64),
			b:    textureDesc("b", 64, 64),
			want: true,
		},
		{
			name: "different sizes",
			a:    textureDesc("a", 64, 64),
			b:    textureDesc("b", 32, 32),
			want: false,
		},
		{
			name: "different kinds",
			a:    textureDesc("a", 64, 64),
			b:    bufferDesc("b", 64),
			want: false,
		},
		{
			name: "identical buffers",
			a:    bufferDesc("a", 256),
			b:    bufferDesc("b", 256),
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compatible(tt.b); got != tt.want {
				t.Errorf("Compatible() = %v, want %v", got, tt.want)
			}
			// PoolKey equality must agree with Compatible.
			if keyEqual := tt.a.PoolKey() == tt.b.PoolKey(); keyEqual != tt.want {
				t.Errorf("PoolKey equality = %v, want %v", keyEqual, tt.want)
			}
		})
	}
}
