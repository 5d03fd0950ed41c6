package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRecipe is returned when a recipe payload has an unsupported shape
var ErrInvalidRecipe = errors.New("invalid recipe")

// MaxTitleLength is the longest drink title the store accepts
const MaxTitleLength = 80

// Ingredient is one component of a drink's recipe
type Ingredient struct {
	Name  string `json:"name" validate:"required,max=80"`
	Color string `json:"color" validate:"required,max=80"`
	Parts int    `json:"parts" validate:"gte=1"`
}

// Recipe is the ordered list of ingredients that make up a drink
type Recipe []Ingredient

// Drink represents a menu item
type Drink struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Recipe    Recipe    `json:"recipe" db:"recipe"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Drink model
func (Drink) TableName() string {
	return "drinks"
}

// NewDrink creates a new Drink instance. The ID is assigned on insert.
func NewDrink(title string, recipe Recipe) *Drink {
	now := time.Now()
	return &Drink{
		Title:     title,
		Recipe:    recipe,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ShortIngredient is the public view of an ingredient, without its name
type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// ShortDrink is the public representation of a drink
type ShortDrink struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

// LongDrink is the full representation of a drink, including ingredient names
type LongDrink struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Recipe Recipe `json:"recipe"`
}

// Short returns the public view of the drink
func (d *Drink) Short() ShortDrink {
	recipe := make([]ShortIngredient, 0, len(d.Recipe))
	for _, ing := range d.Recipe {
		recipe = append(recipe, ShortIngredient{Color: ing.Color, Parts: ing.Parts})
	}
	return ShortDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// Long returns the full view of the drink
func (d *Drink) Long() LongDrink {
	recipe := make(Recipe, len(d.Recipe))
	copy(recipe, d.Recipe)
	return LongDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// ParseRecipe decodes a recipe given as a list of ingredients, a single
// ingredient object, or a JSON string containing either.
func ParseRecipe(raw json.RawMessage) (Recipe, error) {
	return parseRecipe(raw, true)
}

func parseRecipe(raw []byte, allowString bool) (Recipe, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidRecipe)
	}

	switch raw[0] {
	case '[':
		var recipe Recipe
		if err := json.Unmarshal(raw, &recipe); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
		}
		return recipe, nil
	case '{':
		var ing Ingredient
		if err := json.Unmarshal(raw, &ing); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
		}
		return Recipe{ing}, nil
	case '"':
		if !allowString {
			break
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
		}
		return parseRecipe([]byte(s), false)
	}

	return nil, fmt.Errorf("%w: expected an ingredient list or object", ErrInvalidRecipe)
}

// Value implements driver.Valuer, storing the recipe as JSON text
func (r Recipe) Value() (driver.Value, error) {
	if r == nil {
		r = Recipe{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (r *Recipe) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = Recipe{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Recipe", src)
	}

	recipe, err := parseRecipe(raw, false)
	if err != nil {
		return err
	}
	*r = recipe
	return nil
}
