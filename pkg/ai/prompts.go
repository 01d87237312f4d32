package ai

// SRLPrompt asks for verbs and their syntactic role fillers. Format args: line.
const SRLPrompt = `
# Task Context
You are a dependency parser. You extract every main verb of a sentence together with the full noun phrases that fill its syntactic roles.

# Background Data
Sentence: "%s"

# Detailed Task Description & Rules
- List every verb that denotes an action. Skip pure auxiliaries ("is", "was", "has" used as helpers).
- For each verb give the complete phrase for each role, not only the head word ("the mighty bow", not "bow").
- Use these role labels only:
  * "nsubj": the subject
  * "obj": the direct object
  * "iobj": the indirect object or recipient ("to Sita" gives "Sita")
  * "obl:with": instrument or accompaniment introduced by "with"
  * "obl:loc": location or time ("in the library", "at dawn")
  * "obl:from": source introduced by "from"
  * "obl:to": destination introduced by "to" that is not a recipient
- Leave a role out when the sentence does not fill it. Never invent words that are not in the sentence.
- Drop prepositions and determiners that introduce an oblique ("in the library" gives "library").

# Examples
Sentence: "Rama gives book to Sita in library."
[{"verb": "gives", "roles": {"nsubj": "Rama", "obj": "book", "iobj": "Sita", "obl:loc": "library"}}]

Sentence: "She called the team and scheduled a meeting."
[{"verb": "called", "roles": {"nsubj": "She", "obj": "the team"}}, {"verb": "scheduled", "roles": {"nsubj": "She", "obj": "a meeting"}}]

# Output Formatting
Return only a JSON array. Each element has the keys "verb" and "roles". Return [] when the sentence has no action verb.
`

// DependencyParsePrompt asks for a Universal Dependencies parse. Format args: line.
const DependencyParsePrompt = `
# Task Context
You are a Universal Dependencies parser for English.

# Background Data
Sentence: "%s"

# Detailed Task Description & Rules
- Split the sentence into tokens, including punctuation.
- Number tokens from 1 in order of appearance.
- For every token give: "id", "text", "lemma", "pos" (UPOS tag such as NOUN, VERB, AUX, ADP, DET, ADJ, PROPN, PRON, NUM, PUNCT, CCONJ), "dep" (UD relation such as nsubj, obj, iobj, obl, case, det, amod, compound, nmod, nmod:poss, nummod, acl, acl:relcl, conj, cc, aux, punct, root) and "head" (id of the governing token, 0 for the root).
- Exactly one token has head 0.

# Output Formatting
Return a JSON object {"tokens": [...]} and nothing else.
`

// DecomposePrompt maps a question onto a target role. Format args: question.
const DecomposePrompt = `
# Task Context
You are a semantic query analyzer for a Kāraka knowledge graph. Questions are answered by finding the entity that fills one semantic role of an action.

# Background Data
Kāraka roles:
- KARTA: Agent (who performs the action? "who", "by whom")
- KARMA: Object (what or whom is acted upon? "what", "whom")
- KARANA: Instrument (by what means? "with what", "by what", "how")
- SAMPRADANA: Recipient (to whom? for whom?)
- APADANA: Source (from where? from whom?)
- ADHIKARANA: Location or time (where? when?)

Question: "%s"

# Detailed Task Description & Rules
1. Decide which role the question asks for. This is "target_karaka".
2. Every entity named in the question is a constraint on another role of the same action.
3. Give the verb in its base form ("gave" becomes "give").

# Examples
Question: "Who gave the book to Sita?"
{"target_karaka": "KARTA", "constraints": {"SAMPRADANA": "Sita", "KARMA": "book"}, "verb": "give"}

Question: "What did Rama give to Sita?"
{"target_karaka": "KARMA", "constraints": {"KARTA": "Rama", "SAMPRADANA": "Sita"}, "verb": "give"}

Question: "Where did Rama give the book?"
{"target_karaka": "ADHIKARANA", "constraints": {"KARTA": "Rama", "KARMA": "book"}, "verb": "give"}

# Output Formatting
Respond only with a JSON object with the keys "target_karaka", "constraints" and "verb".
`

// SynthesisPrompt phrases an answer from graph evidence.
// Format args: question, target role, evidence list.
const SynthesisPrompt = `
# Task Context
You answer questions using only facts retrieved from a semantic-role knowledge graph.

# Background Data
Question: "%s"
The question asks for the %s of an action.

Evidence (answer, role, confidence, source sentence):
%s

# Detailed Task Description & Rules
- Answer directly in one or two sentences.
- Use only the evidence. Prefer evidence with higher confidence.
- If pieces of evidence disagree, mention both.
- Do not mention confidence scores, line numbers or roles.

# Output Formatting
Return only the answer text.
`

// FramePrompt extracts one event frame. Format args: sentence.
const FramePrompt = `
# Task Context
You are a Pāṇinian grammatical parser extracting an event frame (kriyā and kārakas) from one sentence.

# Background Data
Sentence: "%s"

# Detailed Task Description & Rules
- Identify the main verb and whether it is active or passive.
- Kartā (agent): the subject in active voice, the "by" phrase in passive voice. Passive without "by" has no agent.
- Karma (object): the direct object in active voice, the subject in passive voice.
- Karaṇa (instrument): "with a keyboard", "using statistical methods".
- Sampradāna (recipient): "to the lab", "for the committee".
- Apādāna (source): "from Berlin".
- Locus: a date or period is locus_time, a place you can walk into is locus_space, an abstract subject is locus_topic.
- Only extract text that appears in the sentence. Use null for missing roles.

# Output Formatting
Reason briefly inside <reasoning></reasoning>, then give the JSON inside <json></json>:
<json>
{"kriya": "verb root", "kriya_surface": "form in sentence", "prayoga": "active or passive", "karta": null, "karma": null, "karana": null, "sampradana": null, "apadana": null, "locus_time": null, "locus_space": null, "locus_topic": null}
</json>
`

// EventivePrompt classifies a sentence as eventive or stative. Format args: sentence.
const EventivePrompt = `
# Task Context
Classify a sentence as EVENTIVE or STATIVE.

# Background Data
Sentence: "%s"

# Detailed Task Description & Rules
- EVENTIVE: describes an action, change or happening ("Ram ate the mango", "The company hired 50 employees").
- STATIVE: describes a state, property or relationship ("Ram is tall", "Paris is the capital of France").

# Output Formatting
Respond with JSON: {"type": "EVENTIVE" or "STATIVE", "reason": "brief explanation"}
`
