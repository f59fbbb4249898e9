package repository

import (
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Hook routes text commands starting with Prefix to the actor at URL.
type Hook struct {
	Prefix string `bson:"prefix" validate:"required"`
	URL    string `bson:"url" validate:"required,url"`
}

var validate = validator.New()

// validHooks drops records an administrator stored without a prefix or with a
// broken URL.
func validHooks(hooks []Hook, logger *zap.Logger) []Hook {
	valid := hooks[:0]
	for _, h := range hooks {
		if err := validate.Struct(h); err != nil {
			logger.Warn("skipping invalid routing hook",
				zap.String("prefix", h.Prefix),
				zap.String("url", h.URL),
				zap.Error(err),
			)
			continue
		}
		valid = append(valid, h)
	}
	return valid
}
