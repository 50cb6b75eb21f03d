// Package region maps free-form region input to canonical scoring profiles.
package region

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/greenloop/carbon-cli/internal/model"
)

// Fallback is the canonical region returned for input that cannot be
// resolved. Unknown locales get the neutral global profile rather than
// being scored against a specific region's bounds.
const Fallback = model.RegionDefault

// builtinProfiles holds the daily CO2 kilogram bounds per region.
var builtinProfiles = map[model.RegionKey]model.RegionProfile{
	model.RegionTurkey:  {Min: 10, Avg: 24, Max: 40, PenaltyThreshold: 30},
	model.RegionUAE:     {Min: 25, Avg: 55, Max: 85, PenaltyThreshold: 65},
	model.RegionUSA:     {Min: 20, Avg: 45, Max: 75, PenaltyThreshold: 55},
	model.RegionEurope:  {Min: 12, Avg: 28, Max: 48, PenaltyThreshold: 35},
	model.RegionKuwait:  {Min: 28, Avg: 60, Max: 90, PenaltyThreshold: 70},
	model.RegionJapan:   {Min: 12, Avg: 30, Max: 50, PenaltyThreshold: 38},
	model.RegionDefault: {Min: 15, Avg: 35, Max: 60, PenaltyThreshold: 45},
}

// aliases maps normalized country codes, country names and city hints to
// canonical region keys. Single unified table; the resolver falls through to
// locale-tag parsing and then to Fallback.
var aliases = map[string]model.RegionKey{
	// Turkey
	"tr": model.RegionTurkey, "tur": model.RegionTurkey,
	"türkiye": model.RegionTurkey, "turkiye": model.RegionTurkey,
	"istanbul": model.RegionTurkey, "ankara": model.RegionTurkey,
	"izmir": model.RegionTurkey,

	// UAE
	"ae": model.RegionUAE, "are": model.RegionUAE,
	"united arab emirates": model.RegionUAE, "emirates": model.RegionUAE,
	"dubai": model.RegionUAE, "abu dhabi": model.RegionUAE,
	"sharjah": model.RegionUAE,

	// USA
	"us": model.RegionUSA, "usa": model.RegionUSA,
	"united states": model.RegionUSA, "united states of america": model.RegionUSA,
	"america": model.RegionUSA, "new york": model.RegionUSA,

	// Europe
	"eu": model.RegionEurope, "uk": model.RegionEurope, "gb": model.RegionEurope,
	"united kingdom": model.RegionEurope, "england": model.RegionEurope,
	"london": model.RegionEurope,
	"germany": model.RegionEurope, "de": model.RegionEurope,
	"france": model.RegionEurope, "fr": model.RegionEurope,
	"spain": model.RegionEurope, "italy": model.RegionEurope,
	"netherlands": model.RegionEurope,

	// Kuwait
	"kw": model.RegionKuwait, "kwt": model.RegionKuwait,
	"kuwait city": model.RegionKuwait,

	// Japan
	"jp": model.RegionJapan, "jpn": model.RegionJapan,
	"tokyo": model.RegionJapan, "osaka": model.RegionJapan,
}

// isoRegions maps ISO 3166-1 region codes from parsed locale tags.
var isoRegions = map[string]model.RegionKey{
	"TR": model.RegionTurkey,
	"AE": model.RegionUAE,
	"US": model.RegionUSA,
	"KW": model.RegionKuwait,
	"JP": model.RegionJapan,
	"GB": model.RegionEurope,
	"DE": model.RegionEurope,
	"FR": model.RegionEurope,
	"ES": model.RegionEurope,
	"IT": model.RegionEurope,
	"NL": model.RegionEurope,
}

// baseLanguages maps unambiguous base languages from parsed locale tags.
// Widely spoken languages (en, ar, es) are deliberately absent.
var baseLanguages = map[string]model.RegionKey{
	"tr": model.RegionTurkey,
	"ja": model.RegionJapan,
}

// Resolve maps arbitrary region input to a canonical region key. It is total:
// unknown, empty or garbage input resolves to Fallback, never an error.
func Resolve(input string) model.RegionKey {
	norm := strings.ToLower(strings.TrimSpace(input))
	if norm == "" {
		return Fallback
	}

	if key, ok := aliases[norm]; ok {
		return key
	}

	// A lower-cased canonical key is accepted as-is.
	if _, ok := builtinProfiles[model.RegionKey(norm)]; ok {
		return model.RegionKey(norm)
	}

	// Comma-separated input like "Dubai, UAE": try each segment.
	if strings.Contains(norm, ",") {
		for _, part := range strings.Split(norm, ",") {
			if key := Resolve(part); key != Fallback {
				return key
			}
		}
	}

	// Locale-ish input like "tr-TR" or "en_AE".
	if key, ok := resolveLocale(norm); ok {
		return key
	}

	return Fallback
}

// resolveLocale parses input as a BCP 47 tag and maps its region subtag,
// falling back to the base language for unambiguous languages.
func resolveLocale(norm string) (model.RegionKey, bool) {
	tag, err := language.Parse(strings.ReplaceAll(norm, "_", "-"))
	if err != nil {
		return Fallback, false
	}

	if r, confidence := tag.Region(); confidence >= language.High {
		if key, ok := isoRegions[r.String()]; ok {
			return key, true
		}
	}
	if base, confidence := tag.Base(); confidence >= language.High {
		if key, ok := baseLanguages[base.String()]; ok {
			return key, true
		}
	}
	return Fallback, false
}

// Registry holds the immutable region profile table for a process.
type Registry struct {
	profiles map[model.RegionKey]model.RegionProfile
}

// NewRegistry builds a Registry from the built-in profiles, optionally merged
// with overrides from a YAML file. Overrides are validated before use.
func NewRegistry(overridesFile string) (*Registry, error) {
	profiles := make(map[model.RegionKey]model.RegionProfile, len(builtinProfiles))
	for k, p := range builtinProfiles {
		profiles[k] = p
	}

	if overridesFile != "" {
		data, err := os.ReadFile(overridesFile)
		if err != nil {
			return nil, eris.Wrapf(err, "region: read overrides %s", overridesFile)
		}
		var overrides map[model.RegionKey]model.RegionProfile
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			return nil, eris.Wrapf(err, "region: parse overrides %s", overridesFile)
		}
		for k, p := range overrides {
			if err := validateProfile(k, p); err != nil {
				return nil, err
			}
			profiles[k] = p
		}
		zap.L().Info("region: profile overrides loaded",
			zap.String("file", overridesFile),
			zap.Int("count", len(overrides)),
		)
	}

	return &Registry{profiles: profiles}, nil
}

// Profile returns the bounds for a canonical region key. Unknown keys get the
// fallback profile, so lookups after Resolve always succeed.
func (r *Registry) Profile(key model.RegionKey) model.RegionProfile {
	if p, ok := r.profiles[key]; ok {
		return p
	}
	return r.profiles[Fallback]
}

func validateProfile(key model.RegionKey, p model.RegionProfile) error {
	if p.Min < 0 {
		return eris.Errorf("region: profile %s: min must be >= 0", key)
	}
	if !(p.Min <= p.Avg && p.Avg <= p.PenaltyThreshold && p.PenaltyThreshold <= p.Max) {
		return eris.Errorf("region: profile %s: require min <= avg <= penalty_threshold <= max", key)
	}
	return nil
}
