package config

import "fmt"

// ValidationError reports why a ServiceConfig failed add/update validation.
type ValidationError struct {
	ServiceID string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("service config %q invalid: %s", e.ServiceID, e.Reason)
}
