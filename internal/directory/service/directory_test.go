package service

import (
	"context"
	"testing"

	"autosnap/internal/directory/validator"
	"autosnap/pkg/config"
	"autosnap/pkg/docstore"
	apperrors "autosnap/pkg/errors"
	"autosnap/pkg/logger"
	"autosnap/pkg/model"
)

func newTestService() (*directoryService, *docstore.MemoryStore) {
	store := docstore.NewMemoryStore()
	cfg := &config.Config{Log: logger.Discard()}
	return NewDirectoryService(store, validator.NewDirectoryValidator(), cfg).(*directoryService), store
}

func ptr(s string) *string { return &s }

func TestProfile_CreateThenMerge(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Profile(ctx, "u1"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := svc.UpdateProfile(ctx, "u1", &model.UserUpdate{Email: ptr("a@b.co")}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("first update without username should fail, got %v", err)
	}

	user, err := svc.UpdateProfile(ctx, "u1", &model.UserUpdate{
		Username: ptr("  Best   Garage "),
		Phone:    ptr("+972 54 123 4567"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if user.Username != "Best Garage" || user.Phone != "+972541234567" {
		t.Errorf("user = %+v", user)
	}

	user, err = svc.UpdateProfile(ctx, "u1", &model.UserUpdate{Address: ptr("Herzl 1")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if user.Username != "Best Garage" || user.Address != "Herzl 1" {
		t.Errorf("merge lost fields: %+v", user)
	}
}

func TestServices_Lifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateService(ctx, "center", &model.Service{Name: "Oil change", Duration: 30, Price: 500})
	if err != nil {
		t.Fatalf("CreateService() error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	if _, err := svc.CreateService(ctx, "center", &model.Service{Name: "", Duration: 30}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	list, err := svc.ListServices(ctx, "center")
	if err != nil || len(list) != 1 || list[0].Price != 500 {
		t.Fatalf("ListServices() = %+v, %v", list, err)
	}

	if err := svc.DeleteService(ctx, "center", created.ID); err != nil {
		t.Fatalf("DeleteService() error = %v", err)
	}
	if err := svc.DeleteService(ctx, "center", created.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
}

func TestClients_DualLocation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	self, err := svc.RegisterClient(ctx, "driver", &model.Client{Name: "Omer", Phone: "054-123-4567"})
	if err != nil {
		t.Fatalf("RegisterClient() error = %v", err)
	}
	if self.ID != "driver" || self.Phone != "+972541234567" {
		t.Errorf("self client = %+v", self)
	}
	if _, err := store.Get(ctx, model.ClientPath("driver")); err != nil {
		t.Errorf("self client not at clients/driver: %v", err)
	}

	entered, err := svc.CreateCenterClient(ctx, "center", &model.Client{Name: "Dana"})
	if err != nil {
		t.Fatalf("CreateCenterClient() error = %v", err)
	}
	if _, err := store.Get(ctx, model.UserClientPath("center", entered.ID)); err != nil {
		t.Errorf("center client not under the center: %v", err)
	}

	// cars follow the client to whichever location holds it
	if _, err := svc.AddCar(ctx, "center", "driver", &model.Car{Brand: "Kia", Model: "Rio"}); err != nil {
		t.Fatalf("AddCar(self) error = %v", err)
	}
	if _, err := svc.AddCar(ctx, "center", entered.ID, &model.Car{Brand: "Mazda", Model: "3"}); err != nil {
		t.Fatalf("AddCar(center) error = %v", err)
	}

	got, err := svc.GetClient(ctx, "center", "driver")
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if len(got.Cars) != 1 || got.Cars[0].Brand != "Kia" {
		t.Errorf("self client cars = %+v", got.Cars)
	}
	cars, _ := store.List(ctx, model.CarsPath(model.ClientPath("driver")))
	if len(cars) != 1 {
		t.Errorf("car should live under clients/driver, found %d", len(cars))
	}

	got, err = svc.GetClient(ctx, "center", entered.ID)
	if err != nil || len(got.Cars) != 1 || got.Cars[0].Brand != "Mazda" {
		t.Errorf("center client = %+v, %v", got, err)
	}

	if _, err := svc.GetClient(ctx, "other-center", entered.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("another center must not see the client, got %v", err)
	}
	if _, err := svc.AddCar(ctx, "center", "ghost", &model.Car{Brand: "Kia", Model: "Rio"}); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found for unknown client, got %v", err)
	}
}
