package skills

import "testing"

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Manifest
		dir     string
		wantErr bool
	}{
		{"valid native", Manifest{Name: "workspace_ls", ExecutorType: ExecutorNative, Entrypoint: "run.sh"}, "workspace_ls", false},
		{"name mismatch", Manifest{Name: "foo", ExecutorType: ExecutorNative, Entrypoint: "run.sh"}, "bar", true},
		{"not snake_case", Manifest{Name: "Foo-Bar", ExecutorType: ExecutorNative, Entrypoint: "run.sh"}, "Foo-Bar", true},
		{"missing entrypoint", Manifest{Name: "foo", ExecutorType: ExecutorNative}, "foo", true},
		{"external proxy allows empty entrypoint", Manifest{Name: "foo", ExecutorType: ExecutorExternalProxy}, "foo", false},
		{"unknown executor", Manifest{Name: "foo", ExecutorType: "container"}, "foo", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate(tt.dir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPrivilegedName(t *testing.T) {
	if !IsPrivilegedName("workspace_shell") {
		t.Fatalf("expected workspace_shell to be privileged")
	}
	if IsPrivilegedName("some_random_tool") {
		t.Fatalf("expected some_random_tool to not be privileged")
	}
}
