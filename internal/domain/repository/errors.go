package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un conflicto (ej: duplicado, constraint violation).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")
)

// StoreError envuelve cualquier fallo de la capa de almacenamiento,
// incluyendo violaciones de constraints que sobreviven a los reintentos.
// Siempre lleva la causa original para diagnóstico.
type StoreError struct {
	Op  string // operación que falló, ej: "idp_version.insert"
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: %s failed", e.Op)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError crea un StoreError para la operación dada.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// UnexpectedValueError indica que una fila o estructura no tiene la forma
// esperada (campo faltante, tipo incorrecto).
type UnexpectedValueError struct {
	What string
}

func (e *UnexpectedValueError) Error() string {
	return fmt.Sprintf("unexpected value: %s", e.What)
}

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsStoreError verifica si el error es (o envuelve) un *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
