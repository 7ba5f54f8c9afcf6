package domain

import "context"

type Notification struct {
	Title string
	Body  string
}

// Notifier muestra una notificación. No hay confirmación de entrega.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
