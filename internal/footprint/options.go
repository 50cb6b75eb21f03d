// Package footprint computes deterministic daily CO2 estimates from survey
// answers and calibrates them against untrusted AI hints.
package footprint

import "github.com/greenloop/carbon-cli/internal/model"

// Per-option kilogram weights for a typical day. These are the only inputs
// to the deterministic estimate; the region profile only bounds it.
var (
	TransportKg = map[model.TransportOption]float64{
		model.TransportCarGasoline:   15,
		model.TransportEV:            5,
		model.TransportPublicTransit: 3,
		model.TransportWalkBike:      0,
	}

	DietKg = map[model.DietOption]float64{
		model.DietRedMeat:       20,
		model.DietWhiteMeatFish: 10,
		model.DietCarbBased:     6,
		model.DietVegetarian:    3,
	}

	DrinkKg = map[model.DrinkOption]float64{
		model.DrinkAlcohol:    4,
		model.DrinkBottled:    3,
		model.DrinkCoffeeMilk: 2,
		model.DrinkWaterTea:   1,
	}

	EnergyKg = map[model.EnergyOption]float64{
		model.EnergyHigh:   10,
		model.EnergyMedium: 6,
		model.EnergyLow:    3,
		model.EnergyNone:   0,
	}
)

// Worst answers per dimension. The floor enforcer triggers only when all
// four are selected simultaneously.
const (
	WorstTransport = model.TransportCarGasoline
	WorstDiet      = model.DietRedMeat
	WorstDrink     = model.DrinkAlcohol
	WorstEnergy    = model.EnergyHigh
)
