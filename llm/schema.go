package llm

// JSON Schema helpers for building schema-constrained response definitions.

// ObjectSchema creates an object schema with the given properties.
func ObjectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty creates a string property with a description.
func StringProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// StringEnumProperty creates a string property constrained to the given values.
func StringEnumProperty(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

// NumberProperty creates a number property with a description.
func NumberProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": description,
	}
}

// BooleanProperty creates a boolean property with a description.
func BooleanProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": description,
	}
}

// ArrayProperty creates an array property with the given item type.
func ArrayProperty(description string, itemType map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items":       itemType,
	}
}

// MapProperty creates an object property with free-form values of the given
// type.
func MapProperty(description string, valueType map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"description":          description,
		"additionalProperties": valueType,
	}
}

// BeatResponseSchema builds the schema for a BeatResponse, constraining the
// branch field to the labels declared on the current node. This is what
// makes the transition decision deterministic: the model picks from an
// enum, it does not emit free text for the orchestrator to interpret.
func BeatResponseSchema(branchLabels []string, characterNames []string) map[string]interface{} {
	branchDesc := "Declared branch label to follow. Omit when not transitioning through a declared branch."
	var branch map[string]interface{}
	if len(branchLabels) > 0 {
		branch = StringEnumProperty(branchDesc, branchLabels...)
	} else {
		branch = StringEnumProperty(branchDesc) // no declared branches: enum is empty
	}

	update := ObjectSchema(map[string]interface{}{
		"trait_deltas":  MapProperty("Trait name to additive intensity delta.", NumberProperty("delta")),
		"goal_progress": MapProperty("Goal description to absolute progress in [0,1].", NumberProperty("progress")),
		"relationships": MapProperty("Other character name to absolute sentiment in [-1,1].", NumberProperty("sentiment")),
		"new_goals": ArrayProperty("Goals the character newly adopts.", ObjectSchema(map[string]interface{}{
			"description": StringProperty("Goal text."),
			"priority":    NumberProperty("Priority in [0,1]."),
		}, "description")),
		"learned": ArrayProperty("Facts this character privately learned this turn.", StringProperty("fact")),
	})

	updatesDesc := "Character name to state updates."
	if len(characterNames) > 0 {
		updatesDesc += " Known characters: "
		for i, name := range characterNames {
			if i > 0 {
				updatesDesc += ", "
			}
			updatesDesc += name
		}
		updatesDesc += "."
	}

	return ObjectSchema(map[string]interface{}{
		"text":          StringProperty("The story continuation, written in second person."),
		"branch":        branch,
		"no_transition": BooleanProperty("True for interactions that stay in the current scene."),
		"new_node": ObjectSchema(map[string]interface{}{
			"title":        StringProperty("Short scene title."),
			"content":      StringProperty("Scene content for the new node."),
			"branch_label": StringProperty("Label for the branch leading into the new scene."),
		}, "content", "branch_label"),
		"character_updates": MapProperty(updatesDesc, update),
		"important_facts":   ArrayProperty("Facts worth remembering story-wide.", StringProperty("fact")),
	}, "text")
}
