package httpapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/akwarm/degree-days/internal/degreedays"
)

var validate = validator.New()

// DatasetReader loads the current dataset rows.
type DatasetReader func() ([]degreedays.MonthlyRecord, error)

// RegisterRoutes wires the HTTP handlers into the Fiber app. The API is
// read-only: it exposes the persisted dataset to downstream consumers,
// the same data the CSV mirror carries.
func RegisterRoutes(app *fiber.App, read DatasetReader, mirrorPath string) {
	v1 := app.Group("/api/v1")

	v1.Get("/stations", func(c *fiber.Ctx) error {
		rows, err := read()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read dataset")
		}
		stations := degreedays.Stations(rows)
		if stations == nil {
			stations = []string{}
		}
		return c.JSON(fiber.Map{"stations": stations})
	})

	v1.Get("/degree-days", func(c *fiber.Ctx) error {
		q, err := parseStationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rows, err := read()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read dataset")
		}

		var records []degreedays.MonthlyRecord
		for _, r := range rows {
			if r.Station == q.Station {
				records = append(records, r)
			}
		}
		if len(records) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no degree-day data for requested station")
		}

		return c.JSON(fiber.Map{
			"station": q.Station,
			"records": records,
		})
	})

	app.Get("/data/degree_days.csv", func(c *fiber.Ctx) error {
		return c.SendFile(mirrorPath)
	})
}

// stationQuery holds query parameters identifying an NWS station.
type stationQuery struct {
	Station string `validate:"required,alphanum,len=4"`
}

func parseStationQuery(c *fiber.Ctx) (stationQuery, error) {
	var q stationQuery
	q.Station = c.Query("station")

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}
