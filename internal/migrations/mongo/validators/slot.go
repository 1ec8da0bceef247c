package validators

import "go.mongodb.org/mongo-driver/bson"

var (
	datePattern = bson.M{
		"bsonType": "string",
		"pattern":  `^\d{4}-\d{2}-\d{2}$`,
	}

	timePattern = bson.M{
		"bsonType": "string",
		"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
	}
)

var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"resource_id",
			"date",
			"time",
			"status",
			"slot_type",
			"is_hidden",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"resource_id": bson.M{
				"bsonType":  "string",
				"maxLength": 64,
			},

			"date": datePattern,
			"time": timePattern,

			"status": bson.M{
				"enum": []string{"available", "pending", "confirmed", "blocked"},
			},

			"slot_type": bson.M{
				"enum": []string{"regular", "with_squeeze_fee"},
			},

			"is_hidden": bson.M{
				"bsonType": "bool",
			},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
