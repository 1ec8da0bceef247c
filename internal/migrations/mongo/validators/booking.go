package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"slot_id",
			"linked_slot_ids",
			"service_type",
			"resource_id",
			"date",
			"time",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"slot_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"linked_slot_ids": bson.M{
				"bsonType": "array",
				"maxItems": 16,
				"items": bson.M{
					"bsonType":  "string",
					"minLength": 24,
					"maxLength": 24,
				},
			},

			"service_type": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 64,
			},

			"resource_id": bson.M{
				"bsonType":  "string",
				"maxLength": 64,
			},

			"date": datePattern,
			"time": timePattern,

			"client_type": bson.M{
				"bsonType":  "string",
				"maxLength": 64,
			},

			"location": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},

			"status": bson.M{
				"enum": []string{"pending_form", "pending_payment", "confirmed", "cancelled"},
			},

			"cancel_reason": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
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
