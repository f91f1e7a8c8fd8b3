/*
Package recipe parses the two Cubofile surface syntaxes.

The text form is line oriented, one directive per line (BASE, RUN, COPY,
ENV, WORKDIR, CMD), with # comments. The table form is TOML with image,
run, copy, and config sections. Both deserialize to ordered build steps
consumed by the builder.
*/
package recipe
