package model

import (
	"testing"

	"autosnap/pkg/docstore"
)

func TestPaths(t *testing.T) {
	tests := []struct {
		got  docstore.Path
		want docstore.Path
	}{
		{UserPath("u1"), "users/u1"},
		{UserServicesPath("u1"), "users/u1/services"},
		{UserServicePath("u1", "s1"), "users/u1/services/s1"},
		{UserClientPath("u1", "c1"), "users/u1/clients/c1"},
		{UserAppointmentPath("u1", "a1"), "users/u1/appointments/a1"},
		{ClientPath("c1"), "clients/c1"},
		{CarsPath(ClientPath("c1")), "clients/c1/cars"},
		{AppointmentPath("a1"), "appointments/a1"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTemplates_ExpandToPathHelpers(t *testing.T) {
	vars := map[string]string{VarCenter: "sc1", VarClientID: "c1", VarCarID: "car1"}

	scoped, ok := ClientTemplates[0].Expand(vars)
	if !ok || scoped != UserClientPath("sc1", "c1") {
		t.Errorf("scoped client = %q", scoped)
	}
	global, ok := ClientTemplates[1].Expand(vars)
	if !ok || global != ClientPath("c1") {
		t.Errorf("global client = %q", global)
	}
	car, ok := CarTemplates[0].Expand(vars)
	if !ok || car != CarsPath(UserClientPath("sc1", "c1")).Child("car1") {
		t.Errorf("scoped car = %q", car)
	}
}
