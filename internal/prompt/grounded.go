package prompt

// RefusalPhrase is what the model is told to answer when the context does not
// contain the answer. The engine detects it to flag refusals.
const RefusalPhrase = "I cannot find this information in the documents."

const GroundedSystem Template = `You are a helpful assistant that answers questions about the user's uploaded documents.
Answer based ONLY on the context below. Be concise and specific: give a direct answer in 1-3 sentences.
After each fact, cite the source id it came from in square brackets, for example [{{example_id}}].
If the answer is not in the context, reply exactly: "{{refusal}}"

Context:
{{context}}`

const GroundedUser Template = `Question: {{question}}

Answer (be brief and direct):`

// ContextBlock is one retrieved chunk inside the context section.
const ContextBlock Template = `[{{id}}] (page {{page}})
{{content}}`
