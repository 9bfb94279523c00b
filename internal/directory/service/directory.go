package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	directoryerrors "autosnap/internal/directory/errors"
	"autosnap/internal/directory/validator"
	"autosnap/pkg/config"
	"autosnap/pkg/docstore"
	apperrors "autosnap/pkg/errors"
	"autosnap/pkg/model"
	"autosnap/pkg/sanitizer"
)

// DirectoryService manages the records appointments refer to: user profiles,
// service catalogs, clients and their cars.
type DirectoryService interface {
	Profile(ctx context.Context, uid string) (*model.User, error)
	UpdateProfile(ctx context.Context, uid string, update *model.UserUpdate) (*model.User, error)

	CreateService(ctx context.Context, uid string, svc *model.Service) (*model.Service, error)
	ListServices(ctx context.Context, uid string) ([]*model.Service, error)
	DeleteService(ctx context.Context, uid string, serviceID string) error

	RegisterClient(ctx context.Context, uid string, client *model.Client) (*model.Client, error)
	CreateCenterClient(ctx context.Context, center string, client *model.Client) (*model.Client, error)
	GetClient(ctx context.Context, viewer string, clientID string) (*model.Client, error)
	AddCar(ctx context.Context, viewer string, clientID string, car *model.Car) (*model.Car, error)
}

type directoryService struct {
	store     docstore.Store
	validator *validator.DirectoryValidator
	cfg       *config.Config
}

func NewDirectoryService(store docstore.Store, validator *validator.DirectoryValidator, cfg *config.Config) DirectoryService {
	return &directoryService{
		store:     store,
		validator: validator,
		cfg:       cfg,
	}
}

func validationError(resource string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperrors.Validation(resource+" validation failed", map[string]any{
			"field":  verrs[0].Field,
			"errors": verrs,
		})
	}
	return apperrors.Validation(resource+" validation failed", map[string]any{"error": err.Error()})
}

func (s *directoryService) Profile(ctx context.Context, uid string) (*model.User, error) {
	doc, err := s.store.Get(ctx, model.UserPath(uid))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperrors.Wrap(directoryerrors.ErrUserNotFound, apperrors.CodeNotFound, "User not found", http.StatusNotFound).
			WithDetails(map[string]any{"resource": "User", "id": uid})
	}
	if err != nil {
		s.cfg.Log.Error("Failed to read profile", "uid", uid, "error", err)
		return nil, apperrors.Internal("Failed to read profile", err)
	}
	return model.UserFromDocument(doc), nil
}

// UpdateProfile merges the supplied fields. A first update creates the
// profile, in which case a username is required.
func (s *directoryService) UpdateProfile(ctx context.Context, uid string, update *model.UserUpdate) (*model.User, error) {
	sanitizeUserUpdate(update)
	if err := s.validator.ValidateUserUpdate(update); err != nil {
		s.cfg.Log.Warn("Profile validation failed", "uid", uid, "error", err)
		return nil, validationError("Profile", err)
	}

	fields := update.Fields()
	p := model.UserPath(uid)

	err := s.store.Update(ctx, p, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		user := &model.User{ID: uid}
		applyUserUpdate(user, update)
		if verr := s.validator.ValidateUser(user); verr != nil {
			return nil, validationError("Profile", verr)
		}
		err = s.store.Set(ctx, p, user.Fields())
	}
	if err != nil {
		s.cfg.Log.Error("Failed to update profile", "uid", uid, "error", err)
		return nil, apperrors.Internal("Failed to update profile", err)
	}

	s.cfg.Log.Info("Profile updated", "uid", uid, "fields", len(fields))
	return s.Profile(ctx, uid)
}

func (s *directoryService) CreateService(ctx context.Context, uid string, svc *model.Service) (*model.Service, error) {
	svc.Name = sanitizer.NormalizeName(svc.Name)
	svc.Description = sanitizer.TrimAndNormalize(svc.Description)

	if err := s.validator.ValidateService(svc); err != nil {
		s.cfg.Log.Warn("Service validation failed", "uid", uid, "name", svc.Name, "error", err)
		return nil, validationError("Service", err)
	}

	svc.ID = docstore.NewKey()
	if err := s.store.Set(ctx, model.UserServicePath(uid, svc.ID), svc.Fields()); err != nil {
		s.cfg.Log.Error("Failed to create service", "uid", uid, "error", err)
		return nil, apperrors.Internal("Failed to create service", err)
	}

	s.cfg.Log.Info("Service created", "uid", uid, "id", svc.ID, "name", svc.Name, "price", svc.Price)
	return svc, nil
}

func (s *directoryService) ListServices(ctx context.Context, uid string) ([]*model.Service, error) {
	docs, err := s.store.List(ctx, model.UserServicesPath(uid))
	if err != nil {
		s.cfg.Log.Error("Failed to list services", "uid", uid, "error", err)
		return nil, apperrors.Internal("Failed to list services", err)
	}

	services := make([]*model.Service, 0, len(docs))
	for _, doc := range docs {
		services = append(services, model.ServiceFromDocument(doc))
	}
	return services, nil
}

func (s *directoryService) DeleteService(ctx context.Context, uid string, serviceID string) error {
	if serviceID == "" {
		return apperrors.InvalidInput("Service ID cannot be empty")
	}

	err := s.store.Delete(ctx, model.UserServicePath(uid, serviceID))
	if errors.Is(err, docstore.ErrNotFound) {
		return apperrors.NotFoundWithID("Service", serviceID)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to delete service", "uid", uid, "id", serviceID, "error", err)
		return apperrors.Internal("Failed to delete service", err)
	}

	s.cfg.Log.Info("Service deleted", "uid", uid, "id", serviceID)
	return nil
}

// RegisterClient stores the caller's own client record at clients/{uid}.
func (s *directoryService) RegisterClient(ctx context.Context, uid string, client *model.Client) (*model.Client, error) {
	client.ID = uid
	return s.saveClient(ctx, uid, model.ClientPath(uid), client)
}

// CreateCenterClient stores a client entered by a service center under the
// center's own client list.
func (s *directoryService) CreateCenterClient(ctx context.Context, center string, client *model.Client) (*model.Client, error) {
	client.ID = docstore.NewKey()
	return s.saveClient(ctx, center, model.UserClientPath(center, client.ID), client)
}

func (s *directoryService) saveClient(ctx context.Context, uid string, p docstore.Path, client *model.Client) (*model.Client, error) {
	sanitizeClient(client)
	if err := s.validator.ValidateClient(client); err != nil {
		s.cfg.Log.Warn("Client validation failed", "uid", uid, "error", err)
		return nil, validationError("Client", err)
	}

	if err := s.store.Set(ctx, p, client.Fields()); err != nil {
		s.cfg.Log.Error("Failed to save client", "uid", uid, "path", p, "error", err)
		return nil, apperrors.Internal("Failed to save client", err)
	}

	s.cfg.Log.Info("Client saved", "uid", uid, "id", client.ID, "path", p)
	return client, nil
}

func (s *directoryService) locateClient(ctx context.Context, viewer, clientID string) (*docstore.Document, error) {
	if clientID == "" {
		return nil, apperrors.InvalidInput("Client ID cannot be empty")
	}

	doc, err := docstore.Resolve(ctx, s.store, model.ClientTemplates, map[string]string{
		model.VarCenter:   viewer,
		model.VarClientID: clientID,
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperrors.Wrap(directoryerrors.ErrClientNotFound, apperrors.CodeNotFound, "Client not found", http.StatusNotFound).
			WithDetails(map[string]any{"resource": "Client", "id": clientID})
	}
	if err != nil {
		s.cfg.Log.Error("Failed to resolve client", "viewer", viewer, "client_id", clientID, "error", err)
		return nil, apperrors.Internal("Failed to read client", err)
	}
	return doc, nil
}

// GetClient looks the client up under the viewer first and at the top level
// second, and returns it with its cars.
func (s *directoryService) GetClient(ctx context.Context, viewer string, clientID string) (*model.Client, error) {
	doc, err := s.locateClient(ctx, viewer, clientID)
	if err != nil {
		return nil, err
	}

	client := model.ClientFromDocument(doc)
	cars, err := s.store.List(ctx, model.CarsPath(doc.Path))
	if err != nil {
		s.cfg.Log.Error("Failed to list cars", "path", doc.Path, "error", err)
		return nil, apperrors.Internal("Failed to read cars", fmt.Errorf("list cars of %s: %w", doc.Path, err))
	}
	client.Cars = make([]*model.Car, 0, len(cars))
	for _, c := range cars {
		client.Cars = append(client.Cars, model.CarFromDocument(c))
	}
	return client, nil
}

// AddCar stores the car next to wherever the client lives.
func (s *directoryService) AddCar(ctx context.Context, viewer string, clientID string, car *model.Car) (*model.Car, error) {
	car.Brand = sanitizer.NormalizeName(car.Brand)
	car.Model = sanitizer.NormalizeName(car.Model)
	if err := s.validator.ValidateCar(car); err != nil {
		s.cfg.Log.Warn("Car validation failed", "viewer", viewer, "client_id", clientID, "error", err)
		return nil, validationError("Car", err)
	}

	doc, err := s.locateClient(ctx, viewer, clientID)
	if err != nil {
		return nil, err
	}

	car.ID = docstore.NewKey()
	p := model.CarsPath(doc.Path).Child(car.ID)
	if err := s.store.Set(ctx, p, car.Fields()); err != nil {
		s.cfg.Log.Error("Failed to add car", "path", p, "error", err)
		return nil, apperrors.Internal("Failed to add car", err)
	}

	s.cfg.Log.Info("Car added", "client_id", clientID, "id", car.ID, "path", p)
	return car, nil
}

func normalizePhone(phone string) string {
	if phone == "" {
		return ""
	}
	if e164 := sanitizer.NormalizePhone(phone); e164 != "" {
		return e164
	}
	return phone
}

func sanitizeClient(c *model.Client) {
	c.Name = sanitizer.NormalizeName(c.Name)
	c.Surname = sanitizer.NormalizeName(c.Surname)
	c.Birthdate = sanitizer.TrimAndNormalize(c.Birthdate)
	c.Email = sanitizer.NormalizeEmail(c.Email)
	c.Phone = normalizePhone(sanitizer.TrimAndNormalize(c.Phone))
	c.Note = sanitizer.TrimAndNormalize(c.Note)
}

func sanitizeUserUpdate(u *model.UserUpdate) {
	if u.Username != nil {
		v := sanitizer.NormalizeName(*u.Username)
		u.Username = &v
	}
	if u.Email != nil {
		v := sanitizer.NormalizeEmail(*u.Email)
		u.Email = &v
	}
	if u.Phone != nil {
		v := normalizePhone(sanitizer.TrimAndNormalize(*u.Phone))
		u.Phone = &v
	}
	if u.Address != nil {
		v := sanitizer.TrimAndNormalize(*u.Address)
		u.Address = &v
	}
}

func applyUserUpdate(u *model.User, update *model.UserUpdate) {
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Address != nil {
		u.Address = *update.Address
	}
}
