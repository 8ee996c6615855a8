package ports

import "github.com/ghalamif/SensorLog/internal/domain"

type Transformer interface {
	Transform(*domain.Reading) (*domain.Reading, error)
	Version() uint16
}
