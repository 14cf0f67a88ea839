// Package domain models US outdoor air-quality observations and predictions.
//
// # Data Source
//
// Historical observations come from the US EPA daily pollutant summary
// compiled into a single CSV (US_air_pollution_dataset_2000_2023.csv). Each
// row is one monitoring site on one day. The dataset is fetched once on first
// run and then read from local storage.
//
// # Column Conventions
//
// Location columns:
//
//	"State", "County", "City" hold plain names without administrative
//	suffixes, e.g. County="Los Angeles", City="Los Angeles". The dashboard
//	presents them as "Los Angeles County" / "Los Angeles City"; see
//	[NormalizeCounty] and [NormalizeCity].
//
// Pollutant columns, for each of O3, CO, SO2 and NO2:
//
//	"<P> Mean"            daily mean concentration
//	"<P> 1st Max Value"   highest hourly reading of the day
//	"<P> AQI"             the pollutant's AQI sub-index
//
// The twelve columns are always handled in the fixed order of [Metrics]:
// pollutant-major, statistic-minor.
//
// Missing values:
//
//	Blank cells and the literals "NaN", "nan", "NA", "N/A" are missing. Numeric
//	columns are imputed with the column median during loading.
//
// # Overall AQI and Categories
//
// The overall AQI of a row or prediction is the maximum of its four
// sub-indices. It is never stored; [Readings.OverallAQI] recomputes it.
//
// Categories follow the EPA bands with closed upper bounds:
//
//	<=50 Good | <=100 Moderate | <=150 Unhealthy_Sensitive | <=200 Unhealthy | >200 Very_Unhealthy
//
// [Categorize] is the only place these thresholds live; the loader's labeling
// step and the prediction path both call it.
package domain
