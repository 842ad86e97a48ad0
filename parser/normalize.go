package parser

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aluiziolira/go-scrape-operators/models"
)

// LoadoutType is the weaponType discriminator of a loadout entry.
type LoadoutType string

const (
	LoadoutPrimary       LoadoutType = "primary"
	LoadoutSecondary     LoadoutType = "secondary"
	LoadoutGadget        LoadoutType = "gadget"
	LoadoutUniqueAbility LoadoutType = "unique-ability"
)

// UnknownLoadoutTypeError is returned for an entry whose weaponType is not recognised.
type UnknownLoadoutTypeError struct {
	Type  string
	Title string
	Slug  string
}

func (e *UnknownLoadoutTypeError) Error() string {
	return fmt.Sprintf("unknown weapon type (%s) of %s for %s", e.Type, e.Title, e.Slug)
}

type placeFunc func(l *models.Loadout, entry models.LoadoutEntry)

var placements = map[LoadoutType]placeFunc{
	LoadoutPrimary: func(l *models.Loadout, entry models.LoadoutEntry) {
		l.Primary = append(l.Primary, entry)
	},
	LoadoutSecondary: func(l *models.Loadout, entry models.LoadoutEntry) {
		l.Secondary = append(l.Secondary, entry)
	},
	LoadoutGadget: func(l *models.Loadout, entry models.LoadoutEntry) {
		l.Gadgets = append(l.Gadgets, entry)
	},
	LoadoutUniqueAbility: func(l *models.Loadout, entry models.LoadoutEntry) {
		l.Unique = &entry
	},
}

// Normalize builds the output record for one operator from its index card,
// slug and detail payload.
func Normalize(summary models.Summary, slug string, payload Payload) (*models.Operator, error) {
	loadout, err := NormalizeLoadout(slug, payload)
	if err != nil {
		return nil, err
	}

	info, err := normalizeInfo(summary, slug, payload)
	if err != nil {
		return nil, err
	}

	return &models.Operator{Info: info, Loadout: loadout}, nil
}

// NormalizeLoadout classifies payload.loadout into primary, secondary,
// gadgets and the unique slot, keeping payload order.
func NormalizeLoadout(slug string, payload Payload) (models.Loadout, error) {
	loadout := models.NewLoadout()

	items, err := LookupArray(payload, "loadout")
	if err != nil {
		return loadout, fmt.Errorf("%s: %w", slug, err)
	}

	for i, item := range items {
		raw, ok := item.(Payload)
		if !ok {
			return loadout, fmt.Errorf("%s: %w", slug, &TypeError{Path: "loadout." + strconv.Itoa(i), Want: "object", Got: item})
		}

		entry, err := loadoutEntry(raw)
		if err != nil {
			return loadout, fmt.Errorf("%s: loadout[%d]: %w", slug, i, err)
		}

		value, err := Lookup(raw, "weaponType")
		if err != nil {
			return loadout, fmt.Errorf("%s: loadout[%d]: %w", slug, i, err)
		}
		weaponType, isString := value.(string)
		if !isString {
			return loadout, &UnknownLoadoutTypeError{Type: describe(value), Title: entry.Name, Slug: slug}
		}

		place, ok := placements[LoadoutType(weaponType)]
		if !ok {
			return loadout, &UnknownLoadoutTypeError{Type: weaponType, Title: entry.Name, Slug: slug}
		}
		if LoadoutType(weaponType) == LoadoutUniqueAbility && loadout.Unique != nil {
			slog.Debug("replacing unique ability",
				slog.String("slug", slug),
				slog.String("previous", loadout.Unique.Name),
				slog.String("current", entry.Name),
			)
		}
		place(&loadout, entry)
	}

	return loadout, nil
}

func loadoutEntry(raw Payload) (models.LoadoutEntry, error) {
	title, err := LookupString(raw, "title")
	if err != nil {
		return models.LoadoutEntry{}, err
	}
	image, err := LookupString(raw, "weaponImage", "url")
	if err != nil {
		return models.LoadoutEntry{}, err
	}

	return models.LoadoutEntry{Name: title, Subtype: raw["weaponSubtype"], Image: image}, nil
}

// describe renders a non-string discriminator for error messages.
func describe(value any) string {
	if value == nil {
		return "null"
	}
	return fmt.Sprint(value)
}

func normalizeInfo(summary models.Summary, slug string, payload Payload) (models.Info, error) {
	header, err := LookupObject(payload, "header")
	if err != nil {
		return models.Info{}, fmt.Errorf("%s: %w", slug, err)
	}

	required := func(keys ...string) (any, error) {
		value, err := Lookup(header, keys...)
		if err != nil {
			return nil, fmt.Errorf("%s: header: %w", slug, err)
		}
		return value, nil
	}

	isAttacker, err := required("isAttacker")
	if err != nil {
		return models.Info{}, err
	}
	side := models.SideDefender
	if truthy(isAttacker) {
		side = models.SideAttacker
	}

	info := models.Info{
		Name:       slug,
		PrettyName: summary.Name,
		Side:       side,
		Banner:     summary.Banner,
		Icon:       summary.Icon,
		URL:        summary.URL,
		Squad:      header["squad"],
	}

	fields := []struct {
		dst  *any
		keys []string
	}{
		{&info.UniqueDescription, []string{"ability", "content"}},
		{&info.RealName, []string{"realName"}},
		{&info.DateOfBirth, []string{"dateOfBirth"}},
		{&info.PlaceOfBirth, []string{"placeOfBirth"}},
		{&info.Stats.Armor, []string{"armor"}},
		{&info.Stats.Speed, []string{"speed"}},
		{&info.Stats.Difficulty, []string{"difficulty"}},
		{&info.Roles, []string{"roles"}},
	}
	for _, f := range fields {
		value, err := required(f.keys...)
		if err != nil {
			return models.Info{}, err
		}
		*f.dst = value
	}

	biography, err := Lookup(payload, "biography")
	if err != nil {
		return models.Info{}, fmt.Errorf("%s: %w", slug, err)
	}
	if truthy(biography) {
		text, err := Lookup(payload, "biography", "biography")
		if err != nil {
			return models.Info{}, fmt.Errorf("%s: %w", slug, err)
		}
		info.Biography = text
	}

	return info, nil
}
