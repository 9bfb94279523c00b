package model

import "autosnap/pkg/docstore"

const (
	UsersRoot        docstore.Path = "users"
	ClientsRoot      docstore.Path = "clients"
	AppointmentsRoot docstore.Path = "appointments"

	servicesSegment     = "services"
	clientsSegment      = "clients"
	carsSegment         = "cars"
	appointmentsSegment = "appointments"
)

// Template variables.
const (
	VarCenter   = "center"
	VarClientID = "clientId"
	VarCarID    = "carId"
)

// Candidate locations of a client, tried in order.
var ClientTemplates = []docstore.Template{
	"users/{center}/clients/{clientId}",
	"clients/{clientId}",
}

// Candidate locations of a car, mirroring ClientTemplates.
var CarTemplates = []docstore.Template{
	"users/{center}/clients/{clientId}/cars/{carId}",
	"clients/{clientId}/cars/{carId}",
}

func UserPath(userID string) docstore.Path {
	return UsersRoot.Child(userID)
}

func UserServicesPath(userID string) docstore.Path {
	return UserPath(userID).Child(servicesSegment)
}

func UserServicePath(userID, serviceID string) docstore.Path {
	return UserServicesPath(userID).Child(serviceID)
}

func UserClientsPath(userID string) docstore.Path {
	return UserPath(userID).Child(clientsSegment)
}

func UserClientPath(userID, clientID string) docstore.Path {
	return UserClientsPath(userID).Child(clientID)
}

func UserAppointmentsPath(userID string) docstore.Path {
	return UserPath(userID).Child(appointmentsSegment)
}

func UserAppointmentPath(userID, appointmentID string) docstore.Path {
	return UserAppointmentsPath(userID).Child(appointmentID)
}

func ClientPath(clientID string) docstore.Path {
	return ClientsRoot.Child(clientID)
}

// CarsPath is the car collection under a client node, wherever it lives.
func CarsPath(client docstore.Path) docstore.Path {
	return client.Child(carsSegment)
}

func AppointmentPath(appointmentID string) docstore.Path {
	return AppointmentsRoot.Child(appointmentID)
}
